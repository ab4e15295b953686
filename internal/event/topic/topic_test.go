package topic

import (
	"slices"
	"testing"
)

func TestTopic_Segments(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected []string
	}{
		{Topic("order.item.added"), []string{"order", "item", "added"}},
		{Topic("config.changed"), []string{"config", "changed"}},
		{Topic("single"), []string{"single"}},
		{Topic("order..paid"), []string{"order", "", "paid"}},
		{Topic(""), nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			if got := tt.topic.Segments(); !slices.Equal(got, tt.expected) {
				t.Errorf("Topic.Segments() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTopic_Parent(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected Topic
	}{
		{Topic("order.item.added"), Topic("order.item")},
		{Topic("config.changed"), Topic("config")},
		{Topic("single"), Topic("")},
		{Topic(""), Topic("")},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			if got := tt.topic.Parent(); got != tt.expected {
				t.Errorf("Topic.Parent() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTopic_HasPrefix(t *testing.T) {
	tests := []struct {
		topic    Topic
		prefix   Topic
		expected bool
	}{
		{Topic("order.item.added"), Topic("order"), true},
		{Topic("order.item.added"), Topic("order.item"), true},
		{Topic("order.item.added"), Topic("order.item.added"), true},
		{Topic("order.item.added"), Topic("ord"), false}, // Not a complete segment
		{Topic("order.item.added"), Topic("item"), false},
		{Topic("order.item.added"), Topic("order.text"), false},
		{Topic("order"), Topic("order.item"), false}, // Prefix longer than topic
		{Topic("order.item"), Topic(""), true},        // Empty prefix matches all
	}

	for _, tt := range tests {
		t.Run(string(tt.topic)+"_"+string(tt.prefix), func(t *testing.T) {
			if got := tt.topic.HasPrefix(tt.prefix); got != tt.expected {
				t.Errorf("Topic.HasPrefix(%v) = %v, want %v", tt.prefix, got, tt.expected)
			}
		})
	}
}

func TestTopic_IsValid(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected bool
	}{
		{Topic("order.item.added"), true},
		{Topic("config.changed"), true},
		{Topic("single"), true},
		{Topic("order.*"), true},
		{Topic("order.**"), true},
		{Topic(""), false},
		{Topic(".order"), false},
		{Topic("order."), false},
		{Topic("order..item"), false},
		{Topic("."), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			if got := tt.topic.IsValid(); got != tt.expected {
				t.Errorf("Topic.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func BenchmarkTopic_Segments(b *testing.B) {
	topic := Topic("order.item.added")
	for i := 0; i < b.N; i++ {
		_ = topic.Segments()
	}
}
