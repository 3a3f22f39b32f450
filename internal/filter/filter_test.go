package filter

import (
	"context"
	"testing"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record() *models.ActivityRecord {
	rec := models.NewActivityRecord("https://linkareer.com/activity/1")
	rec.Title = models.StringPtr("AI 해커톤")
	rec.Categories = []string{"IT", "소프트웨어"}
	return rec
}

func TestMatch(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{`record.activity_category.includes("IT")`, true},
		{`record.activity_category.indexOf("디자인") >= 0`, false},
		{`record.activity_title.startsWith("AI")`, true},
		{`record.activity_img === null`, true},
		{`record.end_date`, false},
		{`record.detail_url.endsWith("/1")`, true},
	}
	for _, tt := range tests {
		f, err := Compile(tt.expr)
		require.NoError(t, err, tt.expr)

		got, err := f.Match(record())
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, got, tt.expr)
	}
}

func TestCompileError(t *testing.T) {
	_, err := Compile(`record.activity_title ===`)
	assert.Error(t, err)
}

func TestMatchRuntimeError(t *testing.T) {
	f, err := Compile(`record.end_date.length > 0`)
	require.NoError(t, err)

	_, err = f.Match(record())
	assert.Error(t, err, "end_date is null")
}

func TestMatchInterruptsRunaway(t *testing.T) {
	f, err := Compile(`while (true) {}`)
	require.NoError(t, err)

	_, err = f.Match(record())
	assert.Error(t, err)
}

type memorySink struct {
	records []*models.ActivityRecord
	closed  bool
}

func (m *memorySink) Write(ctx context.Context, rec *models.ActivityRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func TestSink(t *testing.T) {
	f, err := Compile(`record.activity_category.includes("IT")`)
	require.NoError(t, err)

	next := &memorySink{}
	s := NewSink(next, f)

	other := models.NewActivityRecord("https://linkareer.com/activity/2")
	require.NoError(t, s.Write(context.Background(), record()))
	require.NoError(t, s.Write(context.Background(), other))
	require.NoError(t, s.Close())

	require.Len(t, next.records, 1)
	assert.Equal(t, "https://linkareer.com/activity/1", next.records[0].DetailURL)
	assert.Equal(t, 1, s.Dropped())
	assert.True(t, next.closed)

	known, err := s.Known(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, known)
}
