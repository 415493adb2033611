package presets

import "potluck/models"

var defaultLists = []struct {
	name  string
	kind  models.PresetType
	items []models.PresetItem
}{
	{
		name: "Guest contributions",
		kind: models.PresetParticipants,
		items: []models.PresetItem{
			{Name: "Main dish", Category: models.CategoryMain, Quantity: 2, IsRequired: true},
			{Name: "Salad", Category: models.CategoryOther, Quantity: 2, IsRequired: true},
			{Name: "Bread", Category: models.CategoryOther, Quantity: 1},
			{Name: "Dessert", Category: models.CategoryOther, Quantity: 2},
			{Name: "Soft drinks", Category: models.CategoryOther, Quantity: 3},
			{Name: "Snacks", Category: models.CategoryOther, Quantity: 2},
		},
	},
	{
		name: "Equipment",
		kind: models.PresetSalon,
		items: []models.PresetItem{
			{Name: "Plates", Category: models.CategoryGeneral, Quantity: 1, IsRequired: true},
			{Name: "Cups", Category: models.CategoryGeneral, Quantity: 1, IsRequired: true},
			{Name: "Cutlery", Category: models.CategoryGeneral, Quantity: 1, IsRequired: true},
			{Name: "Napkins", Category: models.CategoryGeneral, Quantity: 1},
			{Name: "Tablecloth", Category: models.CategoryGeneral, Quantity: 1},
			{Name: "Trash bags", Category: models.CategoryGeneral, Quantity: 1},
			{Name: "Ice", Category: models.CategoryGeneral, Quantity: 2},
		},
	},
}
