package auditlog_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"marketparticipant/internal/auditlog"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/tx"
)

type named struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type permission struct {
	Permission string `json:"permission"`
}

type field string

type AuditLogSuite struct {
	suite.Suite
	t0    time.Time
	alice id.UserID
	bob   id.UserID
}

func TestAuditLogSuite(t *testing.T) {
	suite.Run(t, new(AuditLogSuite))
}

func (s *AuditLogSuite) SetupTest() {
	s.t0 = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	s.alice = id.UserID(uuid.New())
	s.bob = id.UserID(uuid.New())
}

func (s *AuditLogSuite) at(hours int) time.Time {
	return s.t0.Add(time.Duration(hours) * time.Hour)
}

func (s *AuditLogSuite) snapshot(state named, hour int, by id.UserID) auditlog.Snapshot[named] {
	return auditlog.Snapshot[named]{State: state, ValidFrom: s.at(hour), ChangedBy: by}
}

func nameRule() auditlog.Rule[named, field] {
	return auditlog.OnChange[named, field]("Name", func(n named) string { return n.Name })
}

func (s *AuditLogSuite) TestOnChange() {
	s.Run("no-op snapshots produce no entries", func() {
		snapshots := []auditlog.Snapshot[named]{
			s.snapshot(named{Name: "A"}, 0, s.alice),
			s.snapshot(named{Name: "B"}, 1, s.alice),
			s.snapshot(named{Name: "B"}, 2, s.bob),
			s.snapshot(named{Name: "C"}, 3, s.bob),
		}

		entries := auditlog.Build(snapshots, []auditlog.Rule[named, field]{nameRule()})

		s.Require().Len(entries, 2)
		s.Equal("A", entries[0].Previous)
		s.Equal("B", entries[0].Current)
		s.Equal(s.alice, entries[0].ChangedBy)
		s.Equal("B", entries[1].Previous)
		s.Equal("C", entries[1].Current)
		s.Equal(s.bob, entries[1].ChangedBy)
		s.Equal(s.at(3), entries[1].Timestamp)
	})

	s.Run("input order does not matter", func() {
		snapshots := []auditlog.Snapshot[named]{
			s.snapshot(named{Name: "C"}, 2, s.alice),
			s.snapshot(named{Name: "A"}, 0, s.alice),
			s.snapshot(named{Name: "B"}, 1, s.alice),
		}
		entries := auditlog.Build(snapshots, []auditlog.Rule[named, field]{nameRule()})
		s.Require().Len(entries, 2)
		s.Equal("C", entries[1].Current)
	})

	s.Run("entries of several fields interleave chronologically", func() {
		rules := []auditlog.Rule[named, field]{
			auditlog.OnChange[named, field]("Status", func(n named) string { return n.Status }),
			nameRule(),
		}
		snapshots := []auditlog.Snapshot[named]{
			s.snapshot(named{Name: "A", Status: "New"}, 0, s.alice),
			s.snapshot(named{Name: "B", Status: "New"}, 1, s.alice),
			s.snapshot(named{Name: "B", Status: "Active"}, 2, s.alice),
		}
		entries := auditlog.Build(snapshots, rules)
		s.Require().Len(entries, 2)
		s.Equal(field("Name"), entries[0].Field)
		s.Equal(field("Status"), entries[1].Field)
	})

	s.Run("empty input yields nothing", func() {
		s.Empty(auditlog.Build[named, field](nil, []auditlog.Rule[named, field]{nameRule()}))
	})
}

func (s *AuditLogSuite) TestGroupedCreationAndDeletion() {
	closedAt := s.at(5)
	snapshots := []auditlog.Snapshot[permission]{
		{State: permission{"actors:manage"}, ValidFrom: s.at(0), ChangedBy: s.alice},
		{State: permission{"users:manage"}, ValidFrom: s.at(1), ValidTo: &closedAt, ChangedBy: s.alice, ClosedBy: s.bob},
		{State: permission{"grid-areas:manage"}, ValidFrom: s.at(2), ChangedBy: s.bob},
	}
	rules := []auditlog.Rule[permission, field]{
		auditlog.OnCreation[permission, field]("PermissionAdded", func(p permission) string { return p.Permission }),
		auditlog.OnDeletion[permission, field]("PermissionRemoved", func(p permission) string { return p.Permission }),
	}

	entries := auditlog.Build(snapshots, rules,
		auditlog.WithGroupBy(func(p permission) string { return p.Permission }))

	s.Require().Len(entries, 4)
	s.Equal(field("PermissionAdded"), entries[0].Field)
	s.Equal("actors:manage", entries[0].Current)
	s.Equal("users:manage", entries[1].Current)
	s.Equal("grid-areas:manage", entries[2].Current)

	removed := entries[3]
	s.Equal(field("PermissionRemoved"), removed.Field)
	s.Equal("users:manage", removed.Group)
	s.Equal("users:manage", removed.Previous)
	s.Empty(removed.Current)
	s.Equal(s.bob, removed.ChangedBy)
	s.Equal(closedAt, removed.Timestamp)
}

func (s *AuditLogSuite) TestMemoryHistory() {
	ctx := context.Background()
	key := id.ActorID(uuid.New())
	h := auditlog.NewMemoryHistory[id.ActorID, named]()

	s.Require().NoError(h.Record(ctx, key, named{Name: "A"}, s.at(0), s.alice))
	s.Require().NoError(h.Record(ctx, key, named{Name: "B"}, s.at(1), s.bob))

	s.Run("closes the previous version", func() {
		versions, err := h.History(ctx, key)
		s.Require().NoError(err)
		s.Require().Len(versions, 2)
		s.Equal(s.at(1), *versions[0].ValidTo)
		s.Nil(versions[1].ValidTo)
	})

	s.Run("rollback withdraws the version and reopens its predecessor", func() {
		err := tx.NewMemoryRunner().RunInTx(ctx, func(ctx context.Context) error {
			s.Require().NoError(h.Record(ctx, key, named{Name: "C"}, s.at(2), s.bob))
			return errors.New("abandon")
		})
		s.Require().Error(err)

		versions, err := h.History(ctx, key)
		s.Require().NoError(err)
		s.Require().Len(versions, 2)
		s.Nil(versions[1].ValidTo)
	})

	s.Run("close marks deletion", func() {
		s.Require().NoError(h.Close(ctx, key, s.at(9), s.alice))
		versions, _ := h.History(ctx, key)
		s.Equal(s.alice, versions[1].ClosedBy)
	})
}

func (s *AuditLogSuite) TestJSONLRoundTrip() {
	end := s.at(1)
	in := []auditlog.Snapshot[named]{
		{State: named{Name: "A"}, ValidFrom: s.at(0), ValidTo: &end, ChangedBy: s.alice},
		{State: named{Name: "B"}, ValidFrom: s.at(1), ChangedBy: s.bob},
	}
	var buf bytes.Buffer
	s.Require().NoError(auditlog.WriteJSONL(&buf, in))

	out, err := auditlog.ReadJSONL[named](&buf)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal("B", out[1].State.Name)
	s.True(out[0].ValidTo.Equal(end))
	s.Equal(s.bob, out[1].ChangedBy)
}

func (s *AuditLogSuite) TestJSONLRejectsGarbage() {
	_, err := auditlog.ReadJSONL[named](bytes.NewBufferString("{not json}\n"))
	s.Require().Error(err)
}
