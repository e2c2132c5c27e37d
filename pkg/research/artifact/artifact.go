package artifact

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
)

// Command is the artifact tag command written for a version.
type Command string

const (
	CommandCreate  Command = "create"
	CommandUpdate  Command = "update"
	CommandRewrite Command = "rewrite"
)

var (
	ErrMissingField   = errors.New("artifact command is missing a required field")
	ErrStringNotFound = errors.New("string not found in artifact")
	ErrEmptyArtifact  = errors.New("artifact has no versions")
)

// Create starts a new artifact at version 1.
func Create(id, title, kind, content string, stage state.ArtifactStage, now time.Time) (state.Artifact, error) {
	if id == "" || title == "" || kind == "" || strings.TrimSpace(content) == "" {
		return state.Artifact{}, fmt.Errorf("%w: create requires id, title, type and content", ErrMissingField)
	}
	if stage == "" {
		stage = state.ArtifactDraft
	}
	return state.Artifact{
		ID:             id,
		Title:          title,
		Type:           kind,
		CurrentVersion: 1,
		Versions: []state.ArtifactVersion{{
			Version:   1,
			Content:   content,
			CreatedAt: now,
			Stage:     stage,
		}},
	}, nil
}

// Update replaces every occurrence of oldStr and appends the result as a new
// version. An empty stage keeps the current one.
func Update(a state.Artifact, oldStr, newStr string, stage state.ArtifactStage, feedback string, now time.Time) (state.Artifact, error) {
	if oldStr == "" {
		return a, fmt.Errorf("%w: update requires old_str", ErrMissingField)
	}
	current, ok := a.Current()
	if !ok {
		return a, ErrEmptyArtifact
	}
	if !strings.Contains(current.Content, oldStr) {
		return a, fmt.Errorf("%w: %q", ErrStringNotFound, oldStr)
	}
	return appendVersion(a, current, strings.ReplaceAll(current.Content, oldStr, newStr), stage, feedback, now), nil
}

// Rewrite appends a version with entirely new content.
func Rewrite(a state.Artifact, content string, stage state.ArtifactStage, feedback string, now time.Time) (state.Artifact, error) {
	if strings.TrimSpace(content) == "" {
		return a, fmt.Errorf("%w: rewrite requires content", ErrMissingField)
	}
	current, ok := a.Current()
	if !ok {
		return a, ErrEmptyArtifact
	}
	return appendVersion(a, current, content, stage, feedback, now), nil
}

func appendVersion(a state.Artifact, current state.ArtifactVersion, content string, stage state.ArtifactStage, feedback string, now time.Time) state.Artifact {
	if stage == "" {
		stage = current.Stage
	}
	next := a.CurrentVersion + 1
	out := a
	out.Versions = append(append([]state.ArtifactVersion(nil), a.Versions...), state.ArtifactVersion{
		Version:   next,
		Content:   content,
		CreatedAt: now,
		Stage:     stage,
		Feedback:  feedback,
	})
	out.CurrentVersion = next
	return out
}

// Render formats the current version as the artifact markup the chat clients
// understand. attrs are extra attributes in order, e.g. old_str and new_str.
func Render(cmd Command, a state.Artifact, attrs ...string) string {
	current, _ := a.Current()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<artifact command="%s" artifact_id="%s"`, cmd, attr(a.ID))
	if cmd == CommandCreate {
		fmt.Fprintf(&sb, ` title="%s" type="%s" stage="%s"`, attr(a.Title), attr(a.Type), current.Stage)
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		fmt.Fprintf(&sb, ` %s="%s"`, attrs[i], attr(attrs[i+1]))
	}
	sb.WriteString(">\n")
	sb.WriteString(current.Content)
	sb.WriteString("\n</artifact>")
	return sb.String()
}

func attr(s string) string {
	return html.EscapeString(s)
}
