package service

import (
	"github.com/vedran77/kapsula/internal/domain"
)

// lifecycleEvent is a requested capsule transition.
type lifecycleEvent string

const (
	eventLock     lifecycleEvent = "lock"
	eventUnlock   lifecycleEvent = "unlock"
	eventAutoOpen lifecycleEvent = "auto_open"
	eventPublish  lifecycleEvent = "publish"
	eventArchive  lifecycleEvent = "archive"
	eventDelete   lifecycleEvent = "delete"
)

// allowedSources lists the statuses each event may fire from.
// CONFISCATED appears nowhere: once moderation takes a capsule no
// lifecycle event is accepted.
var allowedSources = map[lifecycleEvent][]domain.CapsuleStatus{
	eventLock:     {domain.StatusUnpublished},
	eventUnlock:   {domain.StatusClosed},
	eventAutoOpen: {domain.StatusClosed},
	eventPublish:  {domain.StatusUnpublished, domain.StatusClosed},
	eventArchive:  {domain.StatusPublished},
	eventDelete: {
		domain.StatusUnpublished, domain.StatusClosed,
		domain.StatusPublished, domain.StatusArchived,
	},
}

// results maps each event to the status it produces.
var results = map[lifecycleEvent]domain.CapsuleStatus{
	eventLock:     domain.StatusClosed,
	eventUnlock:   domain.StatusUnpublished,
	eventAutoOpen: domain.StatusPublished,
	eventPublish:  domain.StatusPublished,
	eventArchive:  domain.StatusArchived,
}

func canTransition(event lifecycleEvent, from domain.CapsuleStatus) bool {
	for _, s := range allowedSources[event] {
		if s == from {
			return true
		}
	}
	return false
}
