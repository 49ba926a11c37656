package services

import (
	"testing"

	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/internal/testutil"
	"nutriplan_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderService_Nearby(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewProviderService(repositories.NewServiceProviderRepository())

	// центр Алматы
	centerLat, centerLng := 43.2389, 76.8897

	places := []struct {
		name     string
		category string
		lat, lng float64
	}{
		{"Near Gym", "gym", 43.2450, 76.8950},
		{"Near Dietitian", "dietitian", 43.2300, 76.8800},
		{"Far Gym", "gym", 43.3500, 77.0500},
		{"Other City", "gym", 51.1694, 71.4491},
	}
	for _, p := range places {
		_, err := svc.CreateProvider(db, &dto.CreateProviderRequest{
			Name:      p.name,
			Category:  p.category,
			Address:   "Street 1",
			City:      "Almaty",
			Latitude:  floatPtr(p.lat),
			Longitude: floatPtr(p.lng),
			Tags:      []string{"healthy"},
		})
		require.NoError(t, err)
	}

	found, err := svc.Nearby(db, &dto.NearbyProvidersQuery{
		Latitude:  floatPtr(centerLat),
		Longitude: floatPtr(centerLng),
		RadiusKm:  5,
	})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.NotNil(t, found[0].DistanceKm)
	require.NotNil(t, found[1].DistanceKm)
	assert.LessOrEqual(t, *found[0].DistanceKm, *found[1].DistanceKm, "сортировка по расстоянию")
	for _, f := range found {
		assert.LessOrEqual(t, *f.DistanceKm, 5.0)
		assert.Equal(t, []string{"healthy"}, f.Tags)
	}

	gyms, err := svc.Nearby(db, &dto.NearbyProvidersQuery{
		Latitude:  floatPtr(centerLat),
		Longitude: floatPtr(centerLng),
		RadiusKm:  50,
		Category:  "GYM",
	})
	require.NoError(t, err)
	require.Len(t, gyms, 2)
	assert.Equal(t, "Near Gym", gyms[0].Name)
	assert.Equal(t, "Far Gym", gyms[1].Name)

	limited, err := svc.Nearby(db, &dto.NearbyProvidersQuery{
		Latitude:  floatPtr(centerLat),
		Longitude: floatPtr(centerLng),
		RadiusKm:  50,
		Limit:     1,
	})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestProviderService_CRUD(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewProviderService(repositories.NewServiceProviderRepository())

	created, err := svc.CreateProvider(db, &dto.CreateProviderRequest{
		Name:      "Green Kitchen",
		Category:  "catering",
		Address:   "Abay 10",
		City:      "Almaty",
		Latitude:  floatPtr(43.25),
		Longitude: floatPtr(76.9),
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	_, err = svc.UpdateProvider(db, created.ID, &dto.UpdateProviderRequest{Latitude: floatPtr(95)})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	updated, err := svc.UpdateProvider(db, created.ID, &dto.UpdateProviderRequest{
		Name:     strPtr("Green Kitchen 2"),
		IsActive: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Green Kitchen 2", updated.Name)
	assert.Equal(t, "Abay 10", updated.Address)

	_, err = svc.GetProvider(db, created.ID, false)
	assert.ErrorIs(t, err, apperrors.ErrProviderNotFound, "неактивный скрыт от пользователей")
	_, err = svc.GetProvider(db, created.ID, true)
	assert.NoError(t, err)

	page, err := svc.ListProviders(db, &dto.ListProvidersQuery{City: "almaty"}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)
	page, err = svc.ListProviders(db, &dto.ListProvidersQuery{City: "almaty"}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	require.NoError(t, svc.DeleteProvider(db, created.ID))
	assert.ErrorIs(t, svc.DeleteProvider(db, created.ID), apperrors.ErrProviderNotFound)
}
