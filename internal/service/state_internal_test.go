package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vedran77/kapsula/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		event lifecycleEvent
		from  domain.CapsuleStatus
		want  bool
	}{
		{eventLock, domain.StatusUnpublished, true},
		{eventLock, domain.StatusClosed, false},
		{eventLock, domain.StatusPublished, false},
		{eventLock, domain.StatusArchived, false},
		{eventLock, domain.StatusConfiscated, false},

		{eventUnlock, domain.StatusClosed, true},
		{eventUnlock, domain.StatusUnpublished, false},
		{eventUnlock, domain.StatusPublished, false},

		{eventAutoOpen, domain.StatusClosed, true},
		{eventAutoOpen, domain.StatusUnpublished, false},
		{eventAutoOpen, domain.StatusConfiscated, false},

		{eventPublish, domain.StatusUnpublished, true},
		{eventPublish, domain.StatusClosed, true},
		{eventPublish, domain.StatusPublished, false},
		{eventPublish, domain.StatusArchived, false},

		{eventArchive, domain.StatusPublished, true},
		{eventArchive, domain.StatusClosed, false},
		{eventArchive, domain.StatusUnpublished, false},
		{eventArchive, domain.StatusArchived, false},

		{eventDelete, domain.StatusUnpublished, true},
		{eventDelete, domain.StatusClosed, true},
		{eventDelete, domain.StatusPublished, true},
		{eventDelete, domain.StatusArchived, true},
		{eventDelete, domain.StatusConfiscated, false},
	}

	for _, tt := range tests {
		got := canTransition(tt.event, tt.from)
		assert.Equal(t, tt.want, got, "event %s from %s", tt.event, tt.from)
	}
}

func TestResultsCoverEveryTransitioningEvent(t *testing.T) {
	for event := range allowedSources {
		if event == eventDelete {
			continue // delete removes the row, no resulting status
		}
		_, ok := results[event]
		assert.True(t, ok, "event %s has no resulting status", event)
	}
}
