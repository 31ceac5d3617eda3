package service

import (
	"alcyxob/workout-ledger/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/google/uuid"
)

var ErrExportUnavailable = errors.New("ledger export is not configured")

const exportContentType = "application/json"

// ExportResult describes an uploaded ledger export.
type ExportResult struct {
	ObjectKey   string    `json:"objectKey"`
	DownloadURL string    `json:"downloadUrl"`
	Workouts    int       `json:"workouts"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ExportService uploads ledger snapshots to object storage.
type ExportService interface {
	ExportLedger(ctx context.Context) (*ExportResult, error)
}

type exportService struct {
	ledger   LedgerService
	identity IdentityProvider
	storage  storage.FileStorage
	expiry   time.Duration
	now      func() time.Time
}

// NewExportService creates an export service. A nil storage makes every
// export fail with ErrExportUnavailable.
func NewExportService(ledger LedgerService, identity IdentityProvider, fileStorage storage.FileStorage, expiry time.Duration) ExportService {
	if identity == nil {
		identity = StaticIdentity("")
	}
	if expiry <= 0 {
		expiry = storage.DefaultPresignedURLExpiry
	}
	return &exportService{
		ledger:   ledger,
		identity: identity,
		storage:  fileStorage,
		expiry:   expiry,
		now:      time.Now,
	}
}

// ExportKey is the object key of one export of userID's ledger.
func ExportKey(userID, exportID string) string {
	return path.Join("exports", userID, exportID+".json")
}

// ExportLedger writes the current ledger, in the cache file format, to
// exports/<userID>/<uuid>.json and returns a presigned download link.
func (s *exportService) ExportLedger(ctx context.Context) (*ExportResult, error) {
	if s.storage == nil {
		return nil, ErrExportUnavailable
	}
	userID, ok := s.identity.UserID()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	workouts := s.ledger.Workouts()
	body, err := json.Marshal(workouts)
	if err != nil {
		return nil, fmt.Errorf("encode ledger export: %w", err)
	}

	key := ExportKey(userID, uuid.NewString())
	if err := s.storage.PutObject(ctx, key, exportContentType, body); err != nil {
		return nil, fmt.Errorf("upload ledger export: %w", err)
	}

	url, err := s.storage.GeneratePresignedDownloadURL(ctx, key, s.expiry)
	if err != nil {
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			log.Printf("WARN: Could not remove unreachable export %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("presign ledger export: %w", err)
	}

	log.Printf("INFO: Exported %d workouts for user %s to %s", len(workouts), userID, key)
	return &ExportResult{
		ObjectKey:   key,
		DownloadURL: url,
		Workouts:    len(workouts),
		ExpiresAt:   s.now().Add(s.expiry).UTC(),
	}, nil
}
