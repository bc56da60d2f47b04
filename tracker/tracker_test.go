/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

type TrackerTestSuite struct {
	suite.Suite

	tracker *Tracker
}

func TestTrackerTestSuite(t *testing.T) {
	suite.Run(t, &TrackerTestSuite{})
}

func (s *TrackerTestSuite) SetupTest() {
	s.tracker = New()
}

func (s *TrackerTestSuite) TestRegisterAndRelease() {
	h1, err := s.tracker.TryRegister()
	s.Require().NoError(err)
	h2, err := s.tracker.TryRegister()
	s.Require().NoError(err)
	s.Require().Equal(2, s.tracker.InFlight())

	h1.Release()
	s.Require().Equal(1, s.tracker.InFlight())
	h2.Release()
	s.Require().Equal(0, s.tracker.InFlight())
}

func (s *TrackerTestSuite) TestReleaseIsIdempotent() {
	h, err := s.tracker.TryRegister()
	s.Require().NoError(err)
	_, err = s.tracker.TryRegister()
	s.Require().NoError(err)

	h.Release()
	h.Release()
	h.Release()
	s.Require().Equal(1, s.tracker.InFlight())
}

func (s *TrackerTestSuite) TestRegisterRejectedWhileDraining() {
	s.tracker.BeginDrain(context.Background(), time.Millisecond)
	s.Require().True(s.tracker.Draining())

	h, err := s.tracker.TryRegister()
	s.Require().ErrorIs(err, ErrShuttingDown)
	s.Require().Nil(h)
}

func (s *TrackerTestSuite) TestDrainCompletesWhenLastRequestReleases() {
	handles := make([]*Handle, 3)
	for i := range handles {
		h, err := s.tracker.TryRegister()
		s.Require().NoError(err)
		handles[i] = h
	}

	for i, h := range handles {
		h := h
		delay := time.Duration(i+1) * 10 * time.Millisecond
		go func() {
			time.Sleep(delay)
			h.Release()
		}()
	}

	res := s.tracker.BeginDrain(context.Background(), time.Second*5)
	s.Require().Equal(0, res.Abandoned)
	s.Require().Less(res.Elapsed, time.Second)
	s.Require().Equal(0, s.tracker.InFlight())
}

func (s *TrackerTestSuite) TestDrainAbandonsSlowRequests() {
	// Three requests in flight, completing at 5, 10 and 40 time units with a grace period of 30.
	// The first two finish in time, the third is abandoned.
	fast1, err := s.tracker.TryRegister()
	s.Require().NoError(err)
	fast2, err := s.tracker.TryRegister()
	s.Require().NoError(err)
	slow, err := s.tracker.TryRegister()
	s.Require().NoError(err)

	const unit = 10 * time.Millisecond
	go func() {
		time.Sleep(5 * unit)
		fast1.Release()
	}()
	go func() {
		time.Sleep(10 * unit)
		fast2.Release()
	}()
	go func() {
		time.Sleep(40 * unit)
		slow.Release()
	}()

	res := s.tracker.BeginDrain(context.Background(), 30*unit)
	s.Require().Equal(1, res.Abandoned)
	s.Require().GreaterOrEqual(res.Elapsed, 30*unit)
}

func (s *TrackerTestSuite) TestDrainReturnsImmediatelyWhenIdle() {
	res := s.tracker.BeginDrain(context.Background(), time.Second*5)
	s.Require().Equal(0, res.Abandoned)
	s.Require().Less(res.Elapsed, time.Second)
}

func (s *TrackerTestSuite) TestDrainCancelledByContext() {
	_, err := s.tracker.TryRegister()
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()
	res := s.tracker.BeginDrain(ctx, time.Second*10)
	s.Require().Equal(1, res.Abandoned)
	s.Require().Less(res.Elapsed, time.Second)
}

func (s *TrackerTestSuite) TestRepeatedDrainWaitsForSameDrain() {
	h, err := s.tracker.TryRegister()
	s.Require().NoError(err)

	go func() {
		time.Sleep(time.Millisecond * 20)
		h.Release()
	}()

	var wg sync.WaitGroup
	results := make([]DrainResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.tracker.BeginDrain(context.Background(), time.Second*5)
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		s.Require().Equal(0, res.Abandoned)
	}
}

func (s *TrackerTestSuite) TestConcurrentRegisterAndRelease() {
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := s.tracker.TryRegister()
			if err != nil {
				return
			}
			h.Release()
		}()
	}
	wg.Wait()

	s.Require().Equal(0, s.tracker.InFlight())
}

type mockMetricsCollector struct {
	lastInFlight  atomic.Int64
	rejected      atomic.Int64
	lastAbandoned atomic.Int64
	drains        atomic.Int64
}

func (c *mockMetricsCollector) InFlightChanged(count int) {
	c.lastInFlight.Store(int64(count))
}

func (c *mockMetricsCollector) RegistrationRejected() {
	c.rejected.Inc()
}

func (c *mockMetricsCollector) DrainFinished(abandoned int) {
	c.lastAbandoned.Store(int64(abandoned))
	c.drains.Inc()
}

func TestTrackerMetricsCollector(t *testing.T) {
	collector := &mockMetricsCollector{}
	tr := NewWithOpts(Opts{MetricsCollector: collector})

	h, err := tr.TryRegister()
	require.NoError(t, err)
	require.EqualValues(t, 1, collector.lastInFlight.Load())
	h.Release()
	require.EqualValues(t, 0, collector.lastInFlight.Load())

	res := tr.BeginDrain(context.Background(), time.Millisecond)
	require.Equal(t, 0, res.Abandoned)
	require.EqualValues(t, 1, collector.drains.Load())

	_, err = tr.TryRegister()
	require.ErrorIs(t, err, ErrShuttingDown)
	require.EqualValues(t, 1, collector.rejected.Load())
}

func TestUnitStop(t *testing.T) {
	t.Run("graceful stop drains cleanly", func(t *testing.T) {
		tr := New()
		h, err := tr.TryRegister()
		require.NoError(t, err)
		go func() {
			time.Sleep(time.Millisecond * 20)
			h.Release()
		}()

		unit := NewUnit(tr, time.Second*5)
		require.NoError(t, unit.Stop(true))
		require.True(t, tr.Draining())
	})

	t.Run("graceful stop reports abandoned requests", func(t *testing.T) {
		tr := New()
		_, err := tr.TryRegister()
		require.NoError(t, err)

		unit := NewUnit(tr, time.Millisecond*20)
		err = unit.Stop(true)
		require.Error(t, err)
		require.Contains(t, err.Error(), "1 request(s) abandoned")
	})

	t.Run("non-graceful stop skips drain", func(t *testing.T) {
		tr := New()
		_, err := tr.TryRegister()
		require.NoError(t, err)

		unit := NewUnit(tr, time.Second*5)
		require.NoError(t, unit.Stop(false))
		require.False(t, tr.Draining())
	})
}
