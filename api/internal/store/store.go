// Package store persists submissions, practice sets and profiles. Guests are
// kept in a local SQLite file; signed-in users go to Postgres when configured.
package store

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"eduvane/api/internal/types"
	"eduvane/api/internal/util"
)

var ErrNotFound = errors.New("not found")

// GuestUserID is what the front ends send before sign-in.
const GuestUserID = "guest"

type Store interface {
	SaveSubmission(ctx context.Context, s types.Submission) error
	ListSubmissions(ctx context.Context, userID string, limit int) ([]types.Submission, error)
	SavePracticeSet(ctx context.Context, p types.PracticeSet) error
	ListPracticeSets(ctx context.Context, userID string, limit int) ([]types.PracticeSet, error)
	GetProfile(ctx context.Context, id string) (types.Profile, error)
	UpsertProfile(ctx context.Context, p types.Profile) error
	Close() error
}

func IsGuest(userID string) bool {
	id := strings.TrimSpace(userID)
	return id == "" || strings.EqualFold(id, GuestUserID)
}

// NormalizeUserID maps every guest spelling to GuestUserID.
func NormalizeUserID(userID string) string {
	if IsGuest(userID) {
		return GuestUserID
	}
	return strings.TrimSpace(userID)
}

// ImageRef is what a submission records about its photo. Guests keep the
// image inline; signed-in users store a content hash.
func ImageRef(userID string, image []byte, mime string) string {
	if IsGuest(userID) {
		return util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(image))
	}
	return "sha256:" + util.SHA256Hex(image)
}
