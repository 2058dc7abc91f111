package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Composer holds the completion draft of an in-progress ticket. Nothing in
// the draft changes on a failed submission.
type Composer struct {
	key      string
	remarks  string
	location string
	cause    Photo
	reading  Photo

	geo    Geolocator
	picker ImagePicker
	notify Notifier
	submit func(context.Context, CompletionSubmission) error
}

func newComposer(key string, geo Geolocator, picker ImagePicker, notify Notifier, submit func(context.Context, CompletionSubmission) error) *Composer {
	return &Composer{
		key:    key,
		geo:    geo,
		picker: picker,
		notify: notify,
		submit: submit,
	}
}

// IdempotencyKey identifies this draft; every retry sends the same key.
func (c *Composer) IdempotencyKey() string { return c.key }

func (c *Composer) Remarks() string        { return c.remarks }
func (c *Composer) Location() string       { return c.location }
func (c *Composer) PictureCause() Photo    { return c.cause }
func (c *Composer) PictureReading() Photo  { return c.reading }
func (c *Composer) SetRemarks(text string) { c.remarks = text }

// SetLocation is manual entry, always available even when the location
// permission was denied.
func (c *Composer) SetLocation(text string) { c.location = text }

func (c *Composer) CanSubmit() bool {
	return strings.TrimSpace(c.remarks) != ""
}

// UseCurrentLocation fills the location from the device. A denied
// permission is reported and leaves the typed location untouched.
func (c *Composer) UseCurrentLocation(ctx context.Context) error {
	if c.geo == nil {
		c.notify.Notify("Permission denied", "Location permission is required")
		return ErrPermissionDenied
	}

	granted, err := c.geo.RequestPermission(ctx)
	if err != nil {
		c.notify.Notify("Error", "Unable to request location permission")
		return fmt.Errorf("request location permission: %w", err)
	}
	if !granted {
		c.notify.Notify("Permission denied", "Location permission is required")
		return ErrPermissionDenied
	}

	pos, err := c.geo.CurrentPosition(ctx)
	if err != nil {
		c.notify.Notify("Error", "Unable to get current location")
		return fmt.Errorf("current position: %w", err)
	}

	c.location = FormatPosition(pos)
	c.notify.Notify("Location Updated", "Current location has been added")
	return nil
}

func FormatPosition(pos Position) string {
	return fmt.Sprintf("%.6f, %.6f", pos.Latitude, pos.Longitude)
}

func (c *Composer) AttachCause(ctx context.Context) error {
	return c.attach(ctx, "Cause", &c.cause)
}

func (c *Composer) AttachReading(ctx context.Context) error {
	return c.attach(ctx, "Reading", &c.reading)
}

func (c *Composer) RemoveCause() {
	c.cause = NoPhoto()
	c.notify.Notify("Removed", "Cause picture removed")
}

func (c *Composer) RemoveReading() {
	c.reading = NoPhoto()
	c.notify.Notify("Removed", "Reading picture removed")
}

func (c *Composer) attach(ctx context.Context, label string, slot *Photo) error {
	if c.picker == nil {
		c.notify.Notify("Permission Required", "Please allow access to photos")
		return ErrPermissionDenied
	}

	path, ok, err := c.picker.Pick(ctx, label)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			c.notify.Notify("Permission Required", "Please allow access to photos")
			return ErrPermissionDenied
		}
		c.notify.Notify("Error", "Unable to attach "+strings.ToLower(label)+" picture")
		return fmt.Errorf("pick %s picture: %w", strings.ToLower(label), err)
	}
	if !ok {
		return nil
	}

	*slot = LocalPhoto(path)
	c.notify.Notify("Success", label+" picture attached")
	return nil
}

// Record is the completion record the draft would produce.
func (c *Composer) Record() CompletionRecord {
	return CompletionRecord{
		Remarks:        strings.TrimSpace(c.remarks),
		Location:       strings.TrimSpace(c.location),
		PictureCause:   c.cause,
		PictureReading: c.reading,
	}
}

// Submit sends the draft as one completion. Empty remarks never reach the
// network.
func (c *Composer) Submit(ctx context.Context) error {
	if !c.CanSubmit() {
		return ErrRemarksRequired
	}
	return c.submit(ctx, CompletionSubmission{
		CompletionRecord: c.Record(),
		IdempotencyKey:   c.key,
	})
}
