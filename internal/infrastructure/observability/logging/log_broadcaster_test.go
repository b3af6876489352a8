package logging

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestBroadcasterFiltersByChannelAndLevel(t *testing.T) {
	b := newLogBroadcaster()
	go b.run()
	defer b.Shutdown()

	cacheWarn := b.NewClient(AppliedFilters{Channel: ChannelCache, Level: slog.LevelWarn})
	everything := b.NewClient(AppliedFilters{Level: slog.LevelDebug})
	b.RegisterClient(cacheWarn)
	b.RegisterClient(everything)

	b.SubmitLog(LogEntry{Channel: "cache", Level: "INFO", Message: "hit"})
	b.SubmitLog(LogEntry{Channel: "fetch", Level: "ERROR", Message: "circuit open"})
	b.SubmitLog(LogEntry{Channel: "cache", Level: "WARN", Message: "stale"})

	var got []LogEntry
	deadline := time.After(time.Second)
	for len(got) < 3 {
		select {
		case msg := <-everything.Channel:
			var e LogEntry
			if err := json.Unmarshal(msg, &e); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got = append(got, e)
		case <-deadline:
			t.Fatalf("got=%d entries want=3", len(got))
		}
	}

	select {
	case msg := <-cacheWarn.Channel:
		var e LogEntry
		_ = json.Unmarshal(msg, &e)
		if e.Message != "stale" {
			t.Fatalf("got=%q want=stale", e.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("filtered client received nothing")
	}
	select {
	case msg := <-cacheWarn.Channel:
		t.Fatalf("unexpected extra entry %s", msg)
	default:
	}
}

func TestChanneledLoggerLevels(t *testing.T) {
	logger := NewDiscardLogger()
	if err := logger.SetChannelLevel(ChannelFetch, slog.LevelDebug); err != nil {
		t.Fatalf("SetChannelLevel: %v", err)
	}
	levels := logger.GetChannelLevels()
	if levels["fetch"] != "DEBUG" {
		t.Fatalf("got=%q want=DEBUG", levels["fetch"])
	}
	if levels["cache"] != "ERROR" {
		t.Fatalf("got=%q want=ERROR", levels["cache"])
	}
	if err := logger.SetChannelLevel(Channel("nope"), slog.LevelDebug); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}
