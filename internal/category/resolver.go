// internal/category/resolver.go
package category

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Нормализованные категории вознаграждений
const (
	Dining      = "dining"
	Groceries   = "groceries"
	Drugstore   = "drugstore"
	Gas         = "gas"
	Transit     = "transit"
	Hotels      = "hotels"
	RentalCars  = "rental_cars"
	OtherTravel = "other_travel"
	Other       = "other"
)

// placeTypes: тип места из Google Places -> категория вознаграждения.
// Таблицу не сокращать: пропуск типа меняет рекомендацию.
var placeTypes = map[string]string{
	"acai_shop":                 Dining,
	"afghani_restaurant":        Dining,
	"african_restaurant":        Dining,
	"american_restaurant":       Dining,
	"asian_restaurant":          Dining,
	"bagel_shop":                Dining,
	"bakery":                    Dining,
	"bar":                       Dining,
	"bar_and_grill":             Dining,
	"barbecue_restaurant":       Dining,
	"brazilian_restaurant":      Dining,
	"breakfast_restaurant":      Dining,
	"brunch_restaurant":         Dining,
	"buffet_restaurant":         Dining,
	"cafe":                      Dining,
	"cafeteria":                 Dining,
	"candy_store":               Dining,
	"cat_cafe":                  Dining,
	"catering_service":          Dining,
	"chinese_restaurant":        Dining,
	"chocolate_factory":         Dining,
	"chocolate_shop":            Dining,
	"coffee_shop":               Dining,
	"confectionery":             Dining,
	"deli":                      Dining,
	"dessert_restaurant":        Dining,
	"dessert_shop":              Dining,
	"diner":                     Dining,
	"dog_cafe":                  Dining,
	"donut_shop":                Dining,
	"fast_food_restaurant":      Dining,
	"fine_dining_restaurant":    Dining,
	"food":                      Dining,
	"food_court":                Dining,
	"french_restaurant":         Dining,
	"greek_restaurant":          Dining,
	"hamburger_restaurant":      Dining,
	"ice_cream_shop":            Dining,
	"indian_restaurant":         Dining,
	"indonesian_restaurant":     Dining,
	"italian_restaurant":        Dining,
	"japanese_restaurant":       Dining,
	"juice_shop":                Dining,
	"korean_restaurant":         Dining,
	"lebanese_restaurant":       Dining,
	"meal_delivery":             Dining,
	"meal_takeaway":             Dining,
	"mediterranean_restaurant":  Dining,
	"mexican_restaurant":        Dining,
	"middle_eastern_restaurant": Dining,
	"pizza_restaurant":          Dining,
	"pub":                       Dining,
	"ramen_restaurant":          Dining,
	"restaurant":                Dining,
	"sandwich_shop":             Dining,
	"seafood_restaurant":        Dining,
	"spanish_restaurant":        Dining,
	"steak_house":               Dining,
	"sushi_restaurant":          Dining,
	"tea_house":                 Dining,
	"thai_restaurant":           Dining,
	"turkish_restaurant":        Dining,
	"vegan_restaurant":          Dining,
	"vegetarian_restaurant":     Dining,
	"vietnamese_restaurant":     Dining,
	"wine_bar":                  Dining,

	"car_rental": RentalCars,

	"pharmacy":          Drugstore,
	"drugstore":         Drugstore,
	"convenience_store": Drugstore,

	"airport": OtherTravel,

	"extended_stay_hotel": Hotels,
	"lodging":             Hotels,
	"hotel":               Hotels,
	"bed_and_breakfast":   Hotels,
	"budget_japanese_inn": Hotels,
	"inn":                 Hotels,
	"japanese_inn":        Hotels,
	"motel":               Hotels,
	"resort_hotel":        Hotels,

	"train_station":      Transit,
	"bus_station":        Transit,
	"subway_station":     Transit,
	"light_rail_station": Transit,
	"transit_station":    Transit,

	"gas_station": Gas,

	"asian_grocery_store":    Groceries,
	"grocery_store":          Groceries,
	"grocery_or_supermarket": Groceries,
}

var categories = []string{Dining, Groceries, Drugstore, Gas, Transit, Hotels, RentalCars, OtherTravel, Other}

// ResolveCategory переводит тип места в категорию. Неизвестный или пустой тип -> "other".
func ResolveCategory(rawType string) string {
	if c, ok := placeTypes[strings.TrimSpace(rawType)]; ok {
		return c
	}
	return Other
}

// ResolvePrimary берёт первый тип из списка провайдера
func ResolvePrimary(types []string) string {
	if len(types) == 0 {
		return Other
	}
	return ResolveCategory(types[0])
}

// Categories: все нормализованные категории
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

func IsKnown(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, known := range categories {
		if known == c {
			return true
		}
	}
	return false
}

// PlaceTypes возвращает отсортированный список известных типов мест
func PlaceTypes() []string {
	out := make([]string, 0, len(placeTypes))
	for t := range placeTypes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DisplayName: "rental_cars" -> "Rental Cars"
func DisplayName(category string) string {
	s := strings.ReplaceAll(strings.TrimSpace(category), "_", " ")
	return Capitalize(s)
}

// Capitalize: первая буква каждого слова заглавная, остальные строчные.
// Слова делятся только пробелами: "7-eleven" -> "7-eleven", "trader joe's" -> "Trader Joe's".
func Capitalize(s string) string {
	lower := cases.Lower(language.English).String(s)

	var sb strings.Builder
	sb.Grow(len(lower))
	start := true
	for _, r := range lower {
		switch {
		case unicode.IsSpace(r):
			start = true
		case start:
			r = unicode.ToTitle(r)
			start = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
