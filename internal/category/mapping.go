// internal/category/mapping.go
package category

import "strings"

// Mapping: отображаемая категория и её синонимы-ключи в таблице вознаграждений
type Mapping struct {
	Display string
	Keys    []string
}

var mappings = []Mapping{
	{Display: "Restaurants", Keys: []string{"dining", "restaurant", "restaurants", "food"}},
	{Display: "Groceries", Keys: []string{"groceries"}},
	{Display: "Drugstore", Keys: []string{"drugstore", "pharmacy", "pharmacies", "health"}},
	{Display: "Gas", Keys: []string{"gas", "fuel", "gasoline", "petrol"}},
	{Display: "Transit", Keys: []string{"transit"}},
}

// Mappings возвращает копию таблицы
func Mappings() []Mapping {
	out := make([]Mapping, len(mappings))
	for i, m := range mappings {
		keys := make([]string, len(m.Keys))
		copy(keys, m.Keys)
		out[i] = Mapping{Display: m.Display, Keys: keys}
	}
	return out
}

// GetDatabaseKeys возвращает ключи для поиска в таблице карты.
// Имя ищется точно ("Restaurants"); если не нашли: сама категория в нижнем регистре.
func GetDatabaseKeys(displayCategory string) []string {
	for _, m := range mappings {
		if m.Display == displayCategory {
			keys := make([]string, len(m.Keys))
			copy(keys, m.Keys)
			return keys
		}
	}
	return []string{strings.ToLower(displayCategory)}
}

// FindMapping ищет запись, у которой отображаемое имя или один из синонимов совпадает
// с нормализованной категорией.
func FindMapping(normalized string) (Mapping, bool) {
	for _, m := range mappings {
		if strings.ToLower(m.Display) == normalized {
			return m, true
		}
		for _, k := range m.Keys {
			if k == normalized {
				return m, true
			}
		}
	}
	return Mapping{}, false
}

// IsDisplayName: true для "Restaurants", "Gas" и т.д.
func IsDisplayName(s string) bool {
	for _, m := range mappings {
		if m.Display == s {
			return true
		}
	}
	return false
}
