package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"reconcile/internal/contact/metrics"
	"reconcile/internal/contact/models"
	"reconcile/internal/contact/service"
	"reconcile/internal/contact/store"
	id "reconcile/pkg/domain"
	dErrors "reconcile/pkg/domain-errors"
)

// =============================================================================
// Identify Service Test Suite
// =============================================================================
// Runs the resolver, assembler and locking against the in-memory store and
// checks the cluster invariants after every scenario.

type IdentifySuite struct {
	suite.Suite
	store   *store.InMemoryStore
	metrics *metrics.Metrics
	service *service.Service
	now     time.Time
}

func TestIdentifySuite(t *testing.T) {
	suite.Run(t, new(IdentifySuite))
}

func (s *IdentifySuite) SetupTest() {
	s.now = time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	s.store = store.NewInMemory(store.WithMemoryClock(func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		s.now = s.now.Add(time.Second)
		return s.now
	}))
	s.metrics = metrics.New(prometheus.NewRegistry())
	svc, err := service.New(s.store, service.NewShardedContactTx(s.store, 0),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *IdentifySuite) identify(email, phone string) *models.ConsolidatedView {
	obs, err := models.NewObservation(email, phone)
	s.Require().NoError(err)
	view, err := s.service.Identify(context.Background(), obs)
	s.Require().NoError(err)
	s.assertInvariants()
	return view
}

// assertInvariants checks that every contact reaches exactly one primary
// in one hop and that every primary is the oldest member of its cluster.
func (s *IdentifySuite) assertInvariants() {
	ctx := context.Background()
	for i := 1; i <= s.store.Len(); i++ {
		c, err := s.store.FindByID(ctx, id.ContactID(i))
		s.Require().NoError(err)
		if c.IsPrimary() {
			s.True(c.LinkedID.IsZero(), "primary %d has a link", c.ID)
			members, err := s.store.FindClusterMembers(ctx, c.ID)
			s.Require().NoError(err)
			s.Equal(c.ID, members[0].ID, "primary %d is not the oldest member", c.ID)
			continue
		}
		root, err := s.store.FindByID(ctx, c.LinkedID)
		s.Require().NoError(err)
		s.True(root.IsPrimary(), "secondary %d links to non-primary %d", c.ID, root.ID)
	}
}

func (s *IdentifySuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := service.New(nil, service.NewShardedContactTx(s.store, 0))
		s.ErrorContains(err, "contact store is required")
	})

	s.Run("nil tx returns error", func() {
		_, err := service.New(s.store, nil)
		s.ErrorContains(err, "contact transaction runner is required")
	})
}

func (s *IdentifySuite) TestNewClusterCreation() {
	view := s.identify("lorraine@hillvalley.edu", "123456")

	s.Equal(id.ContactID(1), view.PrimaryID)
	s.Equal([]string{"lorraine@hillvalley.edu"}, view.Emails)
	s.Equal([]string{"123456"}, view.PhoneNumbers)
	s.Empty(view.SecondaryIDs)
	s.NotNil(view.SecondaryIDs)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.IdentifyTotal.WithLabelValues(metrics.OutcomeCreated)))
}

func (s *IdentifySuite) TestNewInformationLinking() {
	s.identify("lorraine@hillvalley.edu", "123456")
	view := s.identify("mcfly@hillvalley.edu", "123456")

	s.Equal(id.ContactID(1), view.PrimaryID)
	s.Equal([]string{"lorraine@hillvalley.edu", "mcfly@hillvalley.edu"}, view.Emails)
	s.Equal([]string{"123456"}, view.PhoneNumbers)
	s.Equal([]id.ContactID{2}, view.SecondaryIDs)

	secondary, err := s.store.FindByID(context.Background(), 2)
	s.Require().NoError(err)
	s.Equal(models.LinkPrecedenceSecondary, secondary.LinkPrecedence)
	s.Equal(id.ContactID(1), secondary.LinkedID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.IdentifyTotal.WithLabelValues(metrics.OutcomeLinked)))
}

func (s *IdentifySuite) TestSingleFieldSecondaryStoresOnlySuppliedField() {
	s.identify("lorraine@hillvalley.edu", "123456")
	s.identify("", "999999")
	view := s.identify("lorraine@hillvalley.edu", "777")

	s.Equal([]string{"123456", "777"}, view.PhoneNumbers)
	third, err := s.store.FindByID(context.Background(), 3)
	s.Require().NoError(err)
	s.Equal("lorraine@hillvalley.edu", third.Email)
	s.Equal("777", third.PhoneNumber)
}

func (s *IdentifySuite) TestNoNewInformationIsIdempotent() {
	s.identify("lorraine@hillvalley.edu", "123456")
	s.identify("mcfly@hillvalley.edu", "123456")
	before := s.store.Len()

	cases := []struct {
		name  string
		email string
		phone string
	}{
		{"phone only", "", "123456"},
		{"known email only", "mcfly@hillvalley.edu", ""},
		{"known pair split across rows", "lorraine@hillvalley.edu", "123456"},
		{"email and phone from different rows", "mcfly@hillvalley.edu", "123456"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			view := s.identify(tc.email, tc.phone)
			s.Equal(id.ContactID(1), view.PrimaryID)
			s.Equal([]string{"lorraine@hillvalley.edu", "mcfly@hillvalley.edu"}, view.Emails)
			s.Equal([]id.ContactID{2}, view.SecondaryIDs)
		})
	}
	s.Equal(before, s.store.Len())
}

func (s *IdentifySuite) TestIndependentClustersStaySeparate() {
	a := s.identify("george@hillvalley.edu", "919191")
	b := s.identify("biffsucks@hillvalley.edu", "717171")

	s.NotEqual(a.PrimaryID, b.PrimaryID)
	s.Equal([]string{"george@hillvalley.edu"}, a.Emails)
	s.Equal([]string{"biffsucks@hillvalley.edu"}, b.Emails)
}

func (s *IdentifySuite) TestMergeDeterminism() {
	s.identify("george@hillvalley.edu", "919191")
	s.identify("biffsucks@hillvalley.edu", "717171")
	s.identify("biff@hillvalley.edu", "717171")

	view := s.identify("george@hillvalley.edu", "717171")

	s.Equal(id.ContactID(1), view.PrimaryID)
	s.Equal([]string{"george@hillvalley.edu", "biffsucks@hillvalley.edu", "biff@hillvalley.edu"}, view.Emails)
	s.Equal([]string{"919191", "717171"}, view.PhoneNumbers)
	s.Equal([]id.ContactID{2, 3}, view.SecondaryIDs)
	s.Equal(3, s.store.Len(), "bridging pair carries no new value")

	ctx := context.Background()
	demoted, err := s.store.FindByID(ctx, 2)
	s.Require().NoError(err)
	s.Equal(models.LinkPrecedenceSecondary, demoted.LinkPrecedence)
	s.Equal(id.ContactID(1), demoted.LinkedID)
	s.True(demoted.UpdatedAt.After(demoted.CreatedAt))

	repointed, err := s.store.FindByID(ctx, 3)
	s.Require().NoError(err)
	s.Equal(id.ContactID(1), repointed.LinkedID)

	linkedToDemoted, err := s.store.FindClusterMembers(ctx, 2)
	s.Require().NoError(err)
	s.Len(linkedToDemoted, 1, "only the demoted contact itself")

	s.Equal(1.0, testutil.ToFloat64(s.metrics.IdentifyTotal.WithLabelValues(metrics.OutcomeMerged)))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.ContactsDemoted))
}

func (s *IdentifySuite) TestMergeFromYoungerSideStillKeepsOldestPrimary() {
	s.identify("george@hillvalley.edu", "919191")
	s.identify("biffsucks@hillvalley.edu", "717171")

	view := s.identify("biffsucks@hillvalley.edu", "919191")

	s.Equal(id.ContactID(1), view.PrimaryID)
	s.Equal([]id.ContactID{2}, view.SecondaryIDs)
}

func (s *IdentifySuite) TestMergeWithNewInformationAppendsSecondary() {
	s.identify("a@x.io", "1")
	s.identify("b@x.io", "2")
	s.identify("c@x.io", "3")

	// A phone-only lookup of a known value changes nothing.
	view := s.identify("", "2")
	s.Equal(id.ContactID(2), view.PrimaryID)

	view = s.identify("c@x.io", "2")
	s.Equal(id.ContactID(2), view.PrimaryID)
	s.Equal([]id.ContactID{3}, view.SecondaryIDs)

	view = s.identify("a@x.io", "3")
	s.Equal(id.ContactID(1), view.PrimaryID)
	s.Equal([]id.ContactID{2, 3}, view.SecondaryIDs)
	s.Equal([]string{"1", "2", "3"}, view.PhoneNumbers)
}

func (s *IdentifySuite) TestOrderingInvariant() {
	s.identify("first@x.io", "100")
	s.identify("second@x.io", "100")
	s.identify("", "200")
	s.identify("second@x.io", "300")
	s.identify("first@x.io", "200")

	view := s.identify("third@x.io", "200")
	s.Equal(id.ContactID(1), view.PrimaryID)
	s.Equal("first@x.io", view.Emails[0])
	s.Equal("100", view.PhoneNumbers[0])
	s.Equal([]string{"first@x.io", "second@x.io", "third@x.io"}, view.Emails)
	s.Equal([]string{"100", "200", "300"}, view.PhoneNumbers)
	s.Equal([]id.ContactID{2, 3, 4, 5}, view.SecondaryIDs)
}

func (s *IdentifySuite) TestRepeatingLastObservationReturnsSameView() {
	s.identify("george@hillvalley.edu", "919191")
	s.identify("biffsucks@hillvalley.edu", "717171")
	first := s.identify("george@hillvalley.edu", "717171")
	size := s.store.Len()

	second := s.identify("george@hillvalley.edu", "717171")
	s.Equal(first, second)
	s.Equal(size, s.store.Len())
}

func (s *IdentifySuite) TestCaseSensitiveValues() {
	s.identify("Doc@HillValley.edu", "1")
	view := s.identify("doc@hillvalley.edu", "1")
	s.Equal([]string{"Doc@HillValley.edu", "doc@hillvalley.edu"}, view.Emails)
}

func (s *IdentifySuite) TestZeroObservationRejected() {
	_, err := s.service.Identify(context.Background(), models.Observation{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(0, s.store.Len())
}

func (s *IdentifySuite) TestView() {
	s.identify("george@hillvalley.edu", "919191")
	s.identify("biffsucks@hillvalley.edu", "717171")
	merged := s.identify("george@hillvalley.edu", "717171")

	s.Run("any member resolves to its cluster", func() {
		for _, member := range []id.ContactID{1, 2} {
			view, err := s.service.View(context.Background(), member)
			s.Require().NoError(err)
			s.Equal(merged, view)
		}
	})

	s.Run("unknown contact", func() {
		_, err := s.service.View(context.Background(), 42)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *IdentifySuite) TestConcurrentIdenticalRequestsCreateOneContact() {
	const goroutines = 50
	var wg sync.WaitGroup
	views := make([]*models.ConsolidatedView, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			obs, _ := models.NewObservation("doc@hillvalley.edu", "121")
			views[i], errs[i] = s.service.Identify(context.Background(), obs)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		s.Require().NoError(errs[i])
		s.Equal(views[0], views[i])
	}
	s.Equal(1, s.store.Len())
}

func (s *IdentifySuite) TestConcurrentBridgingRequestsKeepInvariants() {
	const clusters = 20
	for i := 0; i < clusters; i++ {
		s.identify(fmt.Sprintf("user%d@x.io", i), fmt.Sprintf("%d", 1000+i))
	}

	svc, err := service.New(s.store, service.NewShardedContactTx(s.store, 0),
		service.WithLockAttempts(clusters))
	s.Require().NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, clusters-1)
	for i := 0; i < clusters-1; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			obs, _ := models.NewObservation(fmt.Sprintf("user%d@x.io", i), fmt.Sprintf("%d", 1000+i+1))
			_, errs[i] = svc.Identify(context.Background(), obs)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.Require().NoError(err)
	}
	s.assertInvariants()

	view, err := s.service.View(context.Background(), clusters)
	s.Require().NoError(err)
	s.Equal(id.ContactID(1), view.PrimaryID)
	s.Len(view.SecondaryIDs, clusters-1)
}
