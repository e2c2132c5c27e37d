package service

import (
	"github.com/Dots-Uzbekistan/Lexora/internal/dto"
	"github.com/Dots-Uzbekistan/Lexora/pkg/store"
)

func toStoreMessages(in []dto.MessageDto) []store.Message {
	out := make([]store.Message, 0, len(in))
	for _, m := range in {
		out = append(out, store.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// toMessageDtos never returns nil so the JSON field is always a list.
func toMessageDtos(in []store.Message) []dto.MessageDto {
	out := make([]dto.MessageDto, 0, len(in))
	for _, m := range in {
		out = append(out, dto.MessageDto{Role: m.Role, Content: m.Content})
	}
	return out
}
