package store

import (
	"partforge/internal/draft"
	"partforge/internal/logging"
)

// DegradeStep shrinks a serialized copy of a session so a quota-rejected
// write can be retried. Steps operate only on the copy being written, never
// on the in-memory session. A step returns false when it has nothing left
// to remove.
type DegradeStep func(copy *draft.DraftingSession) bool

// TrimOldestImage drops the oldest generated image. Images dominate document
// size and the oldest renders are the least valuable.
func TrimOldestImage(copy *draft.DraftingSession) bool {
	if len(copy.GeneratedImages) == 0 {
		return false
	}
	dropped := copy.GeneratedImages[0]
	copy.GeneratedImages = copy.GeneratedImages[1:]
	logging.StoreDebug("degrade: dropped image %s (%d remaining)", dropped.ID, len(copy.GeneratedImages))
	return true
}

// DefaultDegradeSteps is the standard reduction chain, tried in order and
// repeated until the write fits or every step is exhausted.
func DefaultDegradeSteps() []DegradeStep {
	return []DegradeStep{TrimOldestImage}
}

// degradedCopy clones the fields a degrade step may shrink. Other fields are
// shared; steps must not mutate them.
func degradedCopy(sess *draft.DraftingSession) *draft.DraftingSession {
	copy := *sess
	copy.GeneratedImages = make([]draft.GeneratedImage, len(sess.GeneratedImages))
	for i, img := range sess.GeneratedImages {
		copy.GeneratedImages[i] = img
	}
	return &copy
}
