package services

import (
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

type fields = map[domain.Column]string

func rec(s domain.Source, f fields) domain.Record {
	return domain.Record{Source: s, Fields: f}
}

func row(load string, f fields) *domain.Load {
	l := domain.NewLoad(load)
	for c, v := range f {
		l.Set(c, v)
	}
	return l
}

func testProfile(t *testing.T) *config.Profile {
	t.Helper()
	p, err := config.DefaultProfile()
	require.NoError(t, err)
	return p
}

func newTestFiller(t *testing.T, ex domain.Extracts, est DistanceEstimator) *Filler {
	t.Helper()
	return NewFiller(testProfile(t).Fill, BuildLookups(ex), est, nil)
}
