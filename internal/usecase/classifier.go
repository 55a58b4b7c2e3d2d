package usecase

import "strings"

// DefaultCategory is assigned when no keyword matches
const DefaultCategory = "Mercearia"

type categoryRule struct {
	category string
	keywords []string
}

// categoryRules is evaluated in order; the first rule with a matching keyword wins.
// Keywords are folded (lowercase, no diacritics) and matched as whole words.
var categoryRules = []categoryRule{
	{"Padaria", []string{
		"pao", "paes", "broa", "baguete", "bolo", "bolos", "croissant", "croissants",
		"tosta", "tostas", "regueifa", "bola de berlim", "pastel de nata", "bread", "bakery", "bagel",
	}},
	{"Laticínios e Ovos", []string{
		"leite", "iogurte", "iogurtes", "queijo", "queijos", "manteiga", "natas", "requeijao",
		"ovos", "ovo", "kefir", "milk", "yogurt", "cheese", "butter", "eggs",
	}},
	{"Talho", []string{
		"carne", "frango", "peru", "porco", "vaca", "novilho", "borrego", "bife", "bifes",
		"costeleta", "costeletas", "febras", "hamburguer", "hamburgueres", "salsichas", "chourico",
		"fiambre", "presunto", "bacon", "meat", "chicken", "beef", "pork",
	}},
	{"Peixaria", []string{
		"peixe", "bacalhau", "salmao", "atum", "pescada", "dourada", "robalo", "sardinha", "sardinhas",
		"polvo", "lulas", "camarao", "marisco", "fish", "salmon", "tuna", "shrimp",
	}},
	{"Bebidas e Garrafeira", []string{
		"agua", "sumo", "sumos", "refrigerante", "cola", "vinho", "cerveja", "cervejas", "espumante",
		"whisky", "gin", "vodka", "licor", "cafe", "cha", "nectar",
		"water", "juice", "wine", "beer", "soda", "coffee", "tea",
	}},
	{"Frutas e Legumes", []string{
		"maca", "macas", "banana", "bananas", "laranja", "laranjas", "pera", "peras", "uva", "uvas",
		"morango", "morangos", "limao", "tomate", "tomates", "alface", "batata", "batatas", "cebola",
		"cebolas", "cenoura", "cenouras", "couve", "brocolos", "espinafres", "abobora", "pepino",
		"apple", "tomatoes", "tomato", "potatoes", "onion", "spinach", "lettuce", "carrots",
	}},
	{"Congelados", []string{
		"congelado", "congelados", "congelada", "congeladas", "gelado", "gelados", "ultracongelado",
		"frozen", "ice cream",
	}},
	{"Limpeza", []string{
		"detergente", "lixivia", "amaciador", "limpa", "desengordurante", "esfregao", "esponja",
		"lava loica", "lava tudo", "papel higienico", "rolo de cozinha", "guardanapos",
		"detergent", "bleach", "cleaner",
	}},
	{"Beleza e Higiene", []string{
		"champo", "gel de banho", "sabonete", "desodorizante", "creme", "pasta de dentes", "escova de dentes",
		"perfume", "maquilhagem", "shampoo", "soap", "toothpaste",
	}},
	{"Bebé", []string{
		"fraldas", "toalhitas", "papa", "papas", "biberao", "chupeta", "bebe", "diapers", "baby",
	}},
	{"Animais", []string{
		"cao", "caes", "gato", "gatos", "racao", "areia para gato", "petisco para cao", "dog", "cat",
	}},
}

// ClassifyCategory guesses a category from a product name by keyword
func ClassifyCategory(name string) string {
	words := foldWords(name)
	if len(words) == 0 {
		return DefaultCategory
	}
	padded := " " + strings.Join(words, " ") + " "

	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return rule.category
			}
		}
	}
	return DefaultCategory
}
