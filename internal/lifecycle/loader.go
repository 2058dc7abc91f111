package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type Loader struct {
	backend    Backend
	storageURL string
	log        zerolog.Logger
}

// NewLoader builds a loader resolving stored picture paths against
// storageURL (for example "https://isp.example.com/storage/").
func NewLoader(backend Backend, storageURL string, log zerolog.Logger) *Loader {
	return &Loader{
		backend:    backend,
		storageURL: storageURL,
		log:        log,
	}
}

func (l *Loader) Load(ctx context.Context, id string) (*Snapshot, error) {
	remote, err := l.backend.FetchTicket(ctx, id)
	if err != nil {
		l.log.Error().Err(err).Str("ticket_id", id).Msg("ticket load failed")
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if remote == nil {
		l.log.Error().Str("ticket_id", id).Msg("ticket load returned no ticket")
		return nil, fmt.Errorf("%w: empty response", ErrLoadFailed)
	}

	snapshot := &Snapshot{Ticket: l.Normalize(*remote)}
	if snapshot.Ticket.ID == missingText {
		snapshot.Ticket.ID = id
	}

	if snapshot.Ticket.Status == StatusCompleted {
		snapshot.Completion = l.completionFromRemote(*remote)
	}

	l.log.Debug().
		Str("ticket_id", snapshot.Ticket.ID).
		Str("server_status", remote.Status).
		Str("status", string(snapshot.Ticket.Status)).
		Msg("ticket loaded")

	return snapshot, nil
}

func (l *Loader) Normalize(remote RemoteTicket) Ticket {
	ticket := Ticket{
		ID:                  remote.ID.Or(missingText),
		TicketNumber:        remote.TicketNumber.Or(missingText),
		AccountNumber:       remote.SubscriptionID.Or(missingText),
		AccountName:         unknownText,
		InstallationAddress: missingText,
		MobileNumber:        missingText,
		Subject:             remote.Subject,
		Type:                NormalizeType(remote.Type),
		Date:                remote.CreatedAt,
		Status:              NormalizeStatus(remote.Status),
		ServerStatus:        strings.ToLower(strings.TrimSpace(remote.Status)),
	}

	if remote.Client != nil {
		ticket.AccountName = remote.Client.Name.Or(unknownText)
		ticket.MobileNumber = remote.Client.MobileNumber.Or(missingText)
	}
	if remote.Subscription != nil {
		ticket.InstallationAddress = remote.Subscription.InstallationAddress.Or(missingText)
	}

	return ticket
}

func (l *Loader) completionFromRemote(remote RemoteTicket) *CompletionRecord {
	record := &CompletionRecord{
		Remarks:  remote.Remarks,
		Location: remote.Location,
	}
	if strings.TrimSpace(record.Remarks) == "" {
		record.Remarks = noRemarks
	}
	record.PictureCause = l.remotePhoto(remote.Picture)
	record.PictureReading = l.remotePhoto(remote.PictureReading)
	return record
}

func (l *Loader) remotePhoto(path string) Photo {
	path = strings.TrimSpace(path)
	if path == "" {
		return NoPhoto()
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return RemotePhoto(path)
	}
	return RemotePhoto(l.storageURL + strings.TrimLeft(path, "/"))
}
