package services

import (
	"testing"

	"example.com/annapurna/services/donations/internal/models"

	"github.com/stretchr/testify/require"
)

func TestEstimateNutrition(t *testing.T) {
	est := EstimateNutrition("rice, chicken, oil")
	require.Equal(t, models.NutritionEstimate{Calories: 430, Protein: 33, Fat: 18}, est)

	require.Equal(t, models.NutritionEstimate{}, EstimateNutrition(""))
	require.Equal(t, models.NutritionEstimate{}, EstimateNutrition("water"))
}

func TestEstimateNutritionIsDeterministic(t *testing.T) {
	first := EstimateNutrition("rice, dal, vegetables")
	second := EstimateNutrition("rice, dal, vegetables")
	require.Equal(t, first, second)
}

func TestEstimateListingNutrition(t *testing.T) {
	items := models.ItemList{
		{Name: "Rice Bowl", Ingredients: "rice"},
		{Name: "Dal Fry", Ingredients: "dal, ghee"},
	}
	est := EstimateListingNutrition(items)
	require.Equal(t, models.NutritionEstimate{Calories: 330, Protein: 10, Fat: 10}, est)
}
