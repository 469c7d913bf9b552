package models_test

import (
	"testing"

	"github.com/UnknownOlympus/geoplaces/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCoordinate_Compare(t *testing.T) {
	base := models.Coordinate{Latitude: 50.45, Longitude: 30.52, Radius: 250}

	t.Run("latitude decides first", func(t *testing.T) {
		other := models.Coordinate{Latitude: 49.0, Longitude: 90.0, Radius: 999}
		assert.True(t, other.Less(base))
		assert.False(t, base.Less(other))
	})

	t.Run("longitude breaks latitude ties", func(t *testing.T) {
		other := models.Coordinate{Latitude: 50.45, Longitude: 10.0, Radius: 999}
		assert.True(t, other.Less(base))
	})

	t.Run("radius breaks remaining ties", func(t *testing.T) {
		other := models.Coordinate{Latitude: 50.45, Longitude: 30.52, Radius: 100}
		assert.True(t, other.Less(base))
		assert.Equal(t, 0, base.Compare(base))
	})

	t.Run("order is transitive", func(t *testing.T) {
		a := models.Coordinate{Latitude: 1, Longitude: 9, Radius: 1}
		b := models.Coordinate{Latitude: 2, Longitude: 1, Radius: 1}
		c := models.Coordinate{Latitude: 3, Longitude: 0, Radius: 0}
		assert.True(t, a.Less(b))
		assert.True(t, b.Less(c))
		assert.True(t, a.Less(c))
		assert.False(t, c.Less(a))
	})
}

func TestNewCoordinateSet(t *testing.T) {
	set := models.NewCoordinateSet(
		models.Coordinate{Latitude: 2, Longitude: 2, Radius: 250},
		models.Coordinate{Latitude: 1, Longitude: 1, Radius: 250},
		models.Coordinate{Latitude: 2, Longitude: 2, Radius: 250},
	)

	assert.Equal(t, []models.Coordinate{
		{Latitude: 1, Longitude: 1, Radius: 250},
		{Latitude: 2, Longitude: 2, Radius: 250},
	}, set)
	assert.Empty(t, models.NewCoordinateSet())
}

func TestCoordinate_Normalized(t *testing.T) {
	c := models.Coordinate{Latitude: 48.8566, Longitude: -2.3522}
	assert.Equal(t, "48.856600--2.352200", c.Normalized())
}

func TestPlace_SetAndFill(t *testing.T) {
	t.Run("set raises accuracy", func(t *testing.T) {
		var place models.Place
		place.Set(models.FieldCountry, "France")
		place.Set(models.FieldCity, "Paris")

		assert.Equal(t, models.AccuracyCity, place.Accuracy)
		assert.Equal(t, "Paris", place.Field(models.FieldCity))
	})

	t.Run("empty value is ignored", func(t *testing.T) {
		var place models.Place
		place.Set(models.FieldCity, "Paris")
		place.Set(models.FieldHouse, "")

		assert.Equal(t, models.AccuracyCity, place.Accuracy)
		assert.Empty(t, place.House)
	})

	t.Run("accuracy never drops", func(t *testing.T) {
		var place models.Place
		place.Set(models.FieldCounty, "Paris")
		place.Set(models.FieldCountry, "France")

		assert.Equal(t, models.AccuracyCounty, place.Accuracy)
	})

	t.Run("fill keeps resolved value", func(t *testing.T) {
		var place models.Place
		place.Set(models.FieldState, "Ile-de-France")
		place.Fill(models.FieldState, "IDF")
		place.Fill(models.FieldStreet, "Rue de Rivoli")

		assert.Equal(t, "Ile-de-France", place.State)
		assert.Equal(t, "Rue de Rivoli", place.Street)
		assert.Equal(t, models.AccuracyStreet, place.Accuracy)
	})
}

func TestAccuracyLevel_String(t *testing.T) {
	assert.Equal(t, "country", models.AccuracyCountry.String())
	assert.Equal(t, "house", models.AccuracyHouse.String())
	assert.Equal(t, "unknown", models.AccuracyLevel(42).String())
}
