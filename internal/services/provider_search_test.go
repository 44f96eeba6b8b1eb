package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/testutil"
	"gorm.io/datatypes"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit *int
		want  int
	}{
		{"default", nil, 20},
		{"zero", intPtr(0), 1},
		{"negative", intPtr(-5), 1},
		{"in range", intPtr(35), 35},
		{"max", intPtr(100), 100},
		{"over max", intPtr(500), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampLimit(tt.limit))
		})
	}
}

func TestSearch_OnlyApproved(t *testing.T) {
	db := testutil.NewDB(t)
	fx := newPhotoFixture(t)
	svc := NewProviderSearchService(db, fx.svc)

	seedProvider(t, db, "Approved One", models.ProviderApproved)
	seedProvider(t, db, "Pending One", models.ProviderPendingReview)
	seedProvider(t, db, "Rejected One", models.ProviderRejected)

	res, err := svc.Search(context.Background(), ProviderSearchQuery{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Approved One", res.Items[0].Name)
	assert.Equal(t, int64(1), res.Total)
}

func TestSearch_TotalIndependentOfLimit(t *testing.T) {
	db := testutil.NewDB(t)
	fx := newPhotoFixture(t)
	svc := NewProviderSearchService(db, fx.svc)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		seedProvider(t, db, fmt.Sprintf("Provider %d", i), models.ProviderApproved, func(p *models.Provider) {
			p.CreatedAt = created
		})
	}

	res, err := svc.Search(context.Background(), ProviderSearchQuery{Limit: intPtr(3), Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Total)
	assert.Equal(t, 3, res.Limit)
	assert.Equal(t, 2, res.Offset)
	require.Len(t, res.Items, 3)
	// newest first
	assert.Equal(t, "Provider 4", res.Items[0].Name)

	res, err = svc.Search(context.Background(), ProviderSearchQuery{Limit: intPtr(0), Offset: -4})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Limit)
	assert.Equal(t, 0, res.Offset)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, int64(7), res.Total)
}

func TestSearch_Filters(t *testing.T) {
	db := testutil.NewDB(t)
	fx := newPhotoFixture(t)
	svc := NewProviderSearchService(db, fx.svc)
	madhwa := "madhwa"

	seedProvider(t, db, "Sharma Purohit", models.ProviderApproved, func(p *models.Provider) {
		p.SampradayaCode = &madhwa
		p.Languages = datatypes.JSONSlice[string]{"kannada", "sanskrit"}
		p.About = "Vedic rituals"
	})
	seedProvider(t, db, "Annapoorna Caterers", models.ProviderApproved, func(p *models.Provider) {
		p.CategoryCode = "cook"
		p.Languages = datatypes.JSONSlice[string]{"telugu"}
		p.About = "Traditional RITUAL meals"
	})
	seedProvider(t, db, "Pure_Veg Kitchen", models.ProviderApproved, func(p *models.Provider) {
		p.About = "100% satvik"
	})

	tests := []struct {
		name  string
		query ProviderSearchQuery
		want  []string
	}{
		{"text in name, case-insensitive", ProviderSearchQuery{Text: "SHARMA"}, []string{"Sharma Purohit"}},
		{"text in about", ProviderSearchQuery{Text: "ritual"}, []string{"Annapoorna Caterers", "Sharma Purohit"}},
		{"category", ProviderSearchQuery{CategoryCode: "cook"}, []string{"Annapoorna Caterers"}},
		{"sampradaya", ProviderSearchQuery{SampradayaCode: "madhwa"}, []string{"Sharma Purohit"}},
		{"language", ProviderSearchQuery{Language: "Sanskrit"}, []string{"Sharma Purohit"}},
		{"no match", ProviderSearchQuery{Text: "plumber"}, []string{}},
		{"underscore is literal", ProviderSearchQuery{Text: "_"}, []string{"Pure_Veg Kitchen"}},
		{"percent is literal", ProviderSearchQuery{Text: "%"}, []string{"Pure_Veg Kitchen"}},
		{"escape char is literal", ProviderSearchQuery{Text: "!"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Search(context.Background(), tt.query)
			require.NoError(t, err)
			names := make([]string, 0, len(res.Items))
			for _, c := range res.Items {
				names = append(names, c.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
			assert.Equal(t, int64(len(tt.want)), res.Total)
		})
	}
}

func TestSearch_PhotoURLs(t *testing.T) {
	db := testutil.NewDB(t)
	fx := newPhotoFixture(t)
	svc := NewProviderSearchService(db, fx.svc)
	ctx := context.Background()

	legacy := seedProvider(t, db, "Legacy", models.ProviderApproved, func(p *models.Provider) {
		p.PhotoURL = "https://legacy.example.com/l.jpg"
	})
	withPhoto := seedProvider(t, db, "With Photo", models.ProviderApproved)
	up, err := fx.svc.UploadProviderPhoto(ctx, pngFile(t), withPhoto.ID)
	require.NoError(t, err)
	_, err = RecordPrimaryPhoto(db, withPhoto.ID, up)
	require.NoError(t, err)

	res, err := svc.Search(ctx, ProviderSearchQuery{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	cards := map[string]ProviderCard{}
	for _, c := range res.Items {
		cards[c.ID] = c
	}
	assert.Equal(t, "https://legacy.example.com/l.jpg", cards[legacy.ID].ThumbnailURL)
	assert.Contains(t, cards[withPhoto.ID].ThumbnailURL, up.ThumbnailPath)
	assert.Contains(t, cards[withPhoto.ID].PhotoURL, up.OriginalPath)
	assert.Equal(t, []string{"kannada"}, cards[legacy.ID].Languages)
}
