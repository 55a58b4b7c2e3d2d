package domain

import (
	"strings"
	"time"
)

// StoreID identifies one of the supported retailers
type StoreID string

const (
	StoreContinente StoreID = "continente"
	StorePingoDoce  StoreID = "pingo-doce"
	StoreLidl       StoreID = "lidl"
	StoreAldi       StoreID = "aldi"
	StoreMakro      StoreID = "makro"
)

// DefaultUnit is used when no unit marker is found for a product
const DefaultUnit = "un"

// Product represents a catalog entry for a single retailer listing
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Unit        string    `json:"unit"`
	Store       StoreID   `json:"store"`
	LastUpdated time.Time `json:"lastUpdated"`
	Code        string    `json:"code,omitempty"`
}

// DisplayKey returns the key under which two products are shown as one entry.
// It is not the storage identity.
func (p Product) DisplayKey() string {
	return strings.ToLower(strings.TrimSpace(p.Name)) + "|" +
		string(p.Store) + "|" +
		strings.ToLower(strings.TrimSpace(p.Unit))
}

// ShoppingItem is a product in a session cart
type ShoppingItem struct {
	Product
	Quantity int  `json:"quantity"`
	Checked  bool `json:"checked"`
}

// ProductFilter narrows a catalog query. Empty fields match everything.
type ProductFilter struct {
	TextSearch string  `form:"q" json:"q,omitempty"`
	Category   string  `form:"category" json:"category,omitempty"`
	Store      StoreID `form:"store" json:"store,omitempty"`
}

// AllCategories is the category value the UI sends for "no filter"
const AllCategories = "todos"

// Store describes a retailer
type Store struct {
	ID          StoreID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

// Category is a catalog section
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Stores lists the supported retailers
var Stores = []Store{
	{ID: StoreContinente, Name: "Continente", Description: "O maior hipermercado de Portugal com a maior variedade."},
	{ID: StorePingoDoce, Name: "Pingo Doce", Description: "O melhor da comida e frescos em Portugal."},
	{ID: StoreLidl, Name: "Lidl", Description: "Líder em frescura e promoções semanais."},
	{ID: StoreAldi, Name: "Aldi", Description: "Preços baixos com qualidade alemã."},
	{ID: StoreMakro, Name: "Makro", Description: "Para profissionais e grandes consumos."},
}

// Categories lists the catalog sections shown to users
var Categories = []Category{
	{ID: "oportunidades", Name: "Oportunidades", Icon: "🏷️"},
	{ID: "novidades", Name: "Novidades", Icon: "✨"},
	{ID: "frescos", Name: "Frescos", Icon: "🥦"},
	{ID: "laticinios-e-ovos", Name: "Laticínios e Ovos", Icon: "🥚"},
	{ID: "congelados", Name: "Congelados", Icon: "❄️"},
	{ID: "mercearia", Name: "Mercearia", Icon: "🥫"},
	{ID: "bebidas-e-garrafeira", Name: "Bebidas e Garrafeira", Icon: "🍷"},
	{ID: "bio-e-saudavel", Name: "Bio e Saudável", Icon: "🌱"},
	{ID: "limpeza", Name: "Limpeza", Icon: "🧹"},
	{ID: "beleza-e-higiene", Name: "Beleza e Higiene", Icon: "🧴"},
	{ID: "bebe", Name: "Bebé", Icon: "🍼"},
	{ID: "animais", Name: "Animais", Icon: "🐾"},
	{ID: "casa-bricolage-jardim", Name: "Casa, Bricolage e Jardim", Icon: "🏠"},
	{ID: "brinquedos-e-jogos", Name: "Brinquedos e Jogos", Icon: "🎮"},
	{ID: "livraria-e-papelaria", Name: "Livraria e Papelaria", Icon: "📚"},
	{ID: "desporto-roupa-viagem", Name: "Desporto, Roupa e Viagem", Icon: "👕"},
}

// ParseStoreID maps free text ("Pingo Doce", "LIDL", "pingo-doce") to a StoreID
func ParseStoreID(s string) (StoreID, bool) {
	slug := strings.Join(strings.Fields(strings.ToLower(s)), "-")
	for _, st := range Stores {
		if string(st.ID) == slug {
			return st.ID, true
		}
	}
	return "", false
}

// Citation is a web source returned by the grounding service
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// ProductMatch is a listing judged equivalent to a reference product
type ProductMatch struct {
	Product
	Score         float64  `json:"score"`
	MatchedTokens []string `json:"matchedTokens"`
}

// PriceComparison lists the best equivalent of a product in every other store,
// cheapest first
type PriceComparison struct {
	Reference Product        `json:"reference"`
	Matches   []ProductMatch `json:"matches"`
	Cheapest  *ProductMatch  `json:"cheapest,omitempty"`
	Savings   float64        `json:"savings"`
}
