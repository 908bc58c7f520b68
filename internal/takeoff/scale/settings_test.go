package scale

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takeoff-api/internal/takeoff/models"
	"takeoff-api/internal/takeoff/repository"
)

var testSetting = models.ScaleSetting{
	Ratio:         "10 ft",
	PixelsPerUnit: 10,
	Unit:          models.UnitFeet,
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{" 3 ", 3, false},
		{"1", 1, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"3.0", 0, true},
		{"three", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			page, err := ParsePage(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, page)
		})
	}
}

func TestSettingsSetGet(t *testing.T) {
	ctx := context.Background()
	settings := NewSettings(repository.NewMemoryStore())

	_, ok, err := settings.Get(ctx, "doc-1", 3)
	require.NoError(t, err)
	assert.False(t, ok, "страница без записи не откалибрована")

	require.NoError(t, settings.Set(ctx, "doc-1", 3, testSetting))

	got, ok, err := settings.Get(ctx, "doc-1", 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testSetting, got)

	// Повторный Set с тем же значением — без дубликатов и без ошибки.
	require.NoError(t, settings.Set(ctx, "doc-1", 3, testSetting))
	got, ok, err = settings.Get(ctx, "doc-1", 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testSetting, got)

	// Полная замена.
	replaced := models.ScaleSetting{Ratio: "5 m", PixelsPerUnit: 40, Unit: models.UnitMeters}
	require.NoError(t, settings.Set(ctx, "doc-1", 3, replaced))
	got, _, err = settings.Get(ctx, "doc-1", 3)
	require.NoError(t, err)
	assert.Equal(t, replaced, got)

	// Соседние страницы и документы не затронуты.
	_, ok, err = settings.Get(ctx, "doc-1", 4)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = settings.Get(ctx, "doc-2", 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsSetInvalid(t *testing.T) {
	ctx := context.Background()
	settings := NewSettings(repository.NewMemoryStore())

	err := settings.Set(ctx, "doc-1", 1, models.ScaleSetting{PixelsPerUnit: 0})
	assert.ErrorIs(t, err, ErrInvalidSetting)

	err = settings.Set(ctx, "doc-1", 1, models.ScaleSetting{PixelsPerUnit: -2})
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestApplyToAll(t *testing.T) {
	ctx := context.Background()
	settings := NewSettings(repository.NewMemoryStore())

	report, err := settings.ApplyToAll(ctx, "doc-1", testSetting, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, "5 of 5 pages updated", report.Summary())

	for page := 1; page <= 5; page++ {
		got, ok, err := settings.Get(ctx, "doc-1", page)
		require.NoError(t, err)
		require.True(t, ok, "page %d", page)
		assert.Equal(t, testSetting, got)
	}
}

// failingStore отказывает в Insert для заданной страницы.
type failingStore struct {
	repository.Store
	failPage int
}

func (s *failingStore) Insert(ctx context.Context, collection string, record map[string]any) (string, error) {
	if page, ok := record["page"].(int); ok && page == s.failPage {
		return "", fmt.Errorf("simulated write failure")
	}
	return s.Store.Insert(ctx, collection, record)
}

func TestApplyToAllPartialFailure(t *testing.T) {
	ctx := context.Background()
	memory := repository.NewMemoryStore()
	settings := NewSettings(&failingStore{Store: memory, failPage: 3})

	report, err := settings.ApplyToAll(ctx, "doc-1", testSetting, 5)
	require.NoError(t, err)

	// Отказ страницы 3 не мешает остальным.
	assert.Equal(t, []int{1, 2, 4, 5}, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 3, report.Failed[0].Page)
	assert.Equal(t, "4 of 5 pages updated", report.Summary())

	_, ok, err := settings.Get(ctx, "doc-1", 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyToAllInvalidTotal(t *testing.T) {
	settings := NewSettings(repository.NewMemoryStore())
	_, err := settings.ApplyToAll(context.Background(), "doc-1", testSetting, 0)
	assert.Error(t, err)
}
