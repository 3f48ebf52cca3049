// Package batch holds the housekeeping jobs run outside the request path.
package batch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/Shivanand-hulikatti/stay-booking/internal/notify"
	"github.com/Shivanand-hulikatti/stay-booking/internal/repository"
	"github.com/aws/aws-xray-sdk-go/xray"
)

// ChangePublisher tells open calendars that nights were released.
type ChangePublisher interface {
	Publish(ctx context.Context, ev model.ChangeEvent) error
}

// SweepResult summarises one run.
type SweepResult struct {
	Expired         int
	Skipped         int
	Failed          int
	DocumentsPurged int64
	Duration        time.Duration
}

// SweepService expires stale inquiries and purges guest documents past
// retention.
type SweepService struct {
	repo          repository.SweepRepository
	changes       ChangePublisher
	notifier      notify.Dispatcher
	retentionDays int
	now           func() time.Time
}

// NewSweepService constructs a SweepService. changes may be nil.
func NewSweepService(repo repository.SweepRepository, changes ChangePublisher, retentionDays int) *SweepService {
	return &SweepService{
		repo:          repo,
		changes:       changes,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// SetNotifier makes the sweep tell guests their inquiry lapsed.
func (s *SweepService) SetNotifier(d notify.Dispatcher) {
	s.notifier = d
}

// Run executes both jobs. A failure on one inquiry is logged and skipped;
// only failures that stop a whole job are returned.
func (s *SweepService) Run(ctx context.Context) (SweepResult, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SweepService.Run")
	if seg != nil {
		defer seg.Close(nil)
	}

	start := s.now()
	var res SweepResult

	if err := s.expireInquiries(ctx, &res); err != nil {
		return res, err
	}

	purged, err := s.repo.PurgeExpiredDocuments(ctx, s.retentionDays)
	if err != nil {
		return res, fmt.Errorf("purge documents: %w", err)
	}
	res.DocumentsPurged = purged
	res.Duration = s.now().Sub(start)

	if seg != nil {
		if err := seg.AddMetadata("result", res); err != nil {
			log.Printf("add result metadata: %v", err)
		}
	}
	log.Printf("sweep done: %d inquiries expired, %d skipped, %d failed, %d documents purged in %s",
		res.Expired, res.Skipped, res.Failed, res.DocumentsPurged, res.Duration)
	return res, nil
}

func (s *SweepService) expireInquiries(ctx context.Context, res *SweepResult) error {
	now := s.now().UTC()
	inquiries, err := s.repo.ExpiredInquiries(ctx, now)
	if err != nil {
		return fmt.Errorf("expire inquiries: %w", err)
	}
	log.Printf("found %d expired inquiries", len(inquiries))

	for _, inq := range inquiries {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := s.repo.ExpireInquiry(ctx, inq.ID, now)
		if err != nil {
			log.Printf("expire inquiry %s: %v", inq.ID, err)
			res.Failed++
			continue
		}
		if !ok {
			res.Skipped++
			continue
		}
		res.Expired++
		s.publish(ctx, inq, now)
	}
	return nil
}

func (s *SweepService) publish(ctx context.Context, inq repository.ExpiredInquiry, now time.Time) {
	rng := model.DateRange{CheckIn: model.DateOf(inq.CheckIn), CheckOut: model.DateOf(inq.CheckOut)}
	if s.changes != nil {
		ev := model.ChangeEvent{
			Kind:       model.ChangeBookingStatusChanged,
			RoomID:     inq.RoomID,
			BookingID:  inq.ID,
			Status:     model.StatusCancelled,
			Range:      rng,
			OccurredAt: now,
		}
		if err := s.changes.Publish(ctx, ev); err != nil {
			log.Printf("publish expiry of %s: %v", inq.ID, err)
		}
	}
	if s.notifier != nil {
		ev := notify.Event{
			Type: notify.InquiryExpired,
			Booking: model.Booking{
				ID:       inq.ID,
				RoomID:   inq.RoomID,
				CheckIn:  rng.CheckIn,
				CheckOut: rng.CheckOut,
				Status:   model.StatusCancelled,
			},
			OccurredAt: now,
		}
		if err := s.notifier.Dispatch(ctx, ev); err != nil {
			log.Printf("notify expiry of %s: %v", inq.ID, err)
		}
	}
}
