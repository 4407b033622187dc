package services

import (
	"strings"

	"example.com/annapurna/services/donations/internal/models"
)

// EstimateNutrition scores a comma-separated ingredients string into a rough
// nutrition estimate. A stand-in for an external nutrition service; the
// lifecycle treats it as an opaque function of the ingredients text.
func EstimateNutrition(ingredientsText string) models.NutritionEstimate {
	if ingredientsText == "" {
		return models.NutritionEstimate{}
	}

	var est models.NutritionEstimate
	for _, raw := range strings.Split(strings.ToLower(ingredientsText), ",") {
		ing := strings.TrimSpace(raw)
		switch {
		case strings.Contains(ing, "rice"):
			est.Calories += 150
			est.Protein += 3
		case strings.Contains(ing, "chicken"), strings.Contains(ing, "meat"):
			est.Calories += 200
			est.Protein += 30
			est.Fat += 8
		case strings.Contains(ing, "dal"), strings.Contains(ing, "beans"), strings.Contains(ing, "potato"):
			est.Calories += 100
			est.Protein += 7
		case strings.Contains(ing, "vegetables"), strings.Contains(ing, "veg"), strings.Contains(ing, "spices"):
			est.Calories += 50
			est.Protein += 3
		case strings.Contains(ing, "oil"), strings.Contains(ing, "ghee"), strings.Contains(ing, "yogurt"):
			est.Calories += 80
			est.Fat += 10
		}
	}
	return est
}

// EstimateListingNutrition aggregates the estimate across all items.
func EstimateListingNutrition(items models.ItemList) models.NutritionEstimate {
	var total models.NutritionEstimate
	for _, item := range items {
		est := EstimateNutrition(item.Ingredients)
		total.Calories += est.Calories
		total.Protein += est.Protein
		total.Fat += est.Fat
	}
	return total
}
