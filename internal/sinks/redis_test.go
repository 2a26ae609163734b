package sinks

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRedisSinkDefaultsStreamNames(t *testing.T) {
	sink := NewRedisSink(RedisSinkConfig{Addr: "localhost:6379"}, zerolog.Nop())
	defer sink.Close()

	if sink.assignmentStream != "eppo:assignments" {
		t.Errorf("unexpected default assignment stream: %q", sink.assignmentStream)
	}
	if sink.banditActionStream != "eppo:bandit-actions" {
		t.Errorf("unexpected default bandit action stream: %q", sink.banditActionStream)
	}
}

func TestNewRedisSinkHonorsCustomStreamNames(t *testing.T) {
	sink := NewRedisSink(RedisSinkConfig{Addr: "localhost:6379", AssignmentStream: "custom-a", BanditActionStream: "custom-b"}, zerolog.Nop())
	defer sink.Close()

	if sink.assignmentStream != "custom-a" || sink.banditActionStream != "custom-b" {
		t.Errorf("custom stream names not honored: %+v", sink)
	}
}
