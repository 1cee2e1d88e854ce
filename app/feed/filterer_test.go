package feed

import "testing"

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Test Item 1", Description: "Test description"},
		{Title: "Test Item 2", Description: "Another description"},
	}

	result := filterer.Run(items, &Config{})

	if len(result) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result))
	}
}

func TestFilterer_TitleInclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Dog owners urged to check for ticks"},
		{Title: "Grain export update"},
		{Title: "Pet snake bite season begins"},
	}

	sourceConfig := &Config{
		Name: "test",
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"DOG", "pet"}},
		},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result))
	}
	if result[0].Title != "Dog owners urged to check for ticks" || result[1].Title != "Pet snake bite season begins" {
		t.Errorf("Unexpected items or order: %+v", result)
	}
}

func TestFilterer_DescriptionExclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Alert A", Description: "Livestock only notice"},
		{Title: "Alert B", Description: "Affects dogs and cats"},
	}

	sourceConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "description", Excludes: []string{"livestock"}},
		},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 1 || result[0].Title != "Alert B" {
		t.Errorf("Expected only 'Alert B', got %+v", result)
	}
}

func TestFilterer_CategoryField(t *testing.T) {
	filterer := NewFilterer()

	plants := "Plant health"
	animals := "Animal health"
	items := []Item{
		{Title: "Fruit fly", Category: &plants},
		{Title: "Parvo outbreak", Category: &animals},
		{Title: "No category"},
	}

	sourceConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "category", Includes: []string{"animal"}},
		},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 1 || result[0].Title != "Parvo outbreak" {
		t.Errorf("Expected only 'Parvo outbreak', got %+v", result)
	}
}

func TestFilterer_ExcludeWinsOverInclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{{Title: "Dog show cancelled"}}
	sourceConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"dog"}, Excludes: []string{"show"}},
		},
	}

	if result := filterer.Run(items, sourceConfig); len(result) != 0 {
		t.Errorf("Expected item to be excluded, got %+v", result)
	}
}
