package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Labels holds every reserved phrase the dialogue engine matches
// verbatim. The defaults reproduce the production button texts; a YAML
// file can override any of them without a rebuild.
type Labels struct {
	MenuForex      string `yaml:"menu_forex"`
	MenuQuiz       string `yaml:"menu_quiz"`
	MenuAI         string `yaml:"menu_ai"`
	ExitAI         string `yaml:"exit_ai"`
	StartAnswering string `yaml:"start_answering"`
	NextLevel      string `yaml:"next_level_prefix"`
	RetryLevel     string `yaml:"retry_level_prefix"`
	ToForeign      string `yaml:"to_foreign"`
	ToLocal        string `yaml:"to_local"`
	MainMenu       string `yaml:"main_menu"`
	LocalCurrency  string `yaml:"local_currency"`

	Currencies []Currency `yaml:"currencies"`
}

// Currency maps a display name to its ISO code and carousel image file.
type Currency struct {
	Name  string `yaml:"name"`
	Code  string `yaml:"code"`
	Image string `yaml:"image"`
}

// DefaultLabels returns the built-in phrase set.
func DefaultLabels() Labels {
	return Labels{
		MenuForex:      "💱 外幣換算",
		MenuQuiz:       "📚 金融小學堂",
		MenuAI:         "☺︎ 詢問AI",
		ExitAI:         "結束提問",
		StartAnswering: "開始作答",
		NextLevel:      "繼續升級挑戰:",
		RetryLevel:     "再挑戰本級:",
		ToForeign:      "台幣換外幣",
		ToLocal:        "外幣換台幣",
		MainMenu:       "主選單",
		LocalCurrency:  "台幣",
		Currencies: []Currency{
			{Name: "美元", Code: "USD", Image: "image7.png"},
			{Name: "日圓", Code: "JPY", Image: "image10.png"},
			{Name: "歐元", Code: "EUR", Image: "image8.png"},
			{Name: "人民幣", Code: "CNY", Image: "image9.png"},
			{Name: "韓元", Code: "KRW", Image: "image7.png"},
		},
	}
}

// LoadLabels reads overrides from path on top of the defaults. A
// missing file is not an error; the defaults are used as-is.
func LoadLabels(path string) (Labels, error) {
	labels := DefaultLabels()
	if path == "" {
		return labels, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return labels, nil
		}
		return labels, fmt.Errorf("read labels file: %w", err)
	}

	var override Labels
	if err := yaml.Unmarshal(data, &override); err != nil {
		return labels, fmt.Errorf("parse labels file: %w", err)
	}
	merge := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	merge(&labels.MenuForex, override.MenuForex)
	merge(&labels.MenuQuiz, override.MenuQuiz)
	merge(&labels.MenuAI, override.MenuAI)
	merge(&labels.ExitAI, override.ExitAI)
	merge(&labels.StartAnswering, override.StartAnswering)
	merge(&labels.NextLevel, override.NextLevel)
	merge(&labels.RetryLevel, override.RetryLevel)
	merge(&labels.ToForeign, override.ToForeign)
	merge(&labels.ToLocal, override.ToLocal)
	merge(&labels.MainMenu, override.MainMenu)
	merge(&labels.LocalCurrency, override.LocalCurrency)
	if len(override.Currencies) > 0 {
		labels.Currencies = override.Currencies
	}
	return labels, nil
}
