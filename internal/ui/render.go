// Package ui builds the presentation payloads the bot replies with.
// The dialogue flows stay on state logic and call into here for every
// card, carousel and prompt.
package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"xiaojin-bot/internal/config"
	"xiaojin-bot/internal/message"
)

type Renderer struct {
	labels       config.Labels
	baseURL      string
	quizTemplate string
	log          zerolog.Logger
}

// NewRenderer loads the question bubble template from templatePath.
// A missing template is tolerated: question cards degrade to a plain
// bubble instead of failing the dialogue.
func NewRenderer(labels config.Labels, baseStaticURL, templatePath string, log zerolog.Logger) *Renderer {
	r := &Renderer{
		labels:  labels,
		baseURL: strings.TrimSuffix(baseStaticURL, "/") + "/",
		log:     log.With().Str("component", "ui").Logger(),
	}
	if templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			r.log.Warn().Err(err).Str("path", templatePath).Msg("question template not loaded")
		} else {
			r.quizTemplate = string(data)
		}
	}
	return r
}

func (r *Renderer) Labels() config.Labels { return r.labels }

func (r *Renderer) imageURL(file string) string {
	return r.baseURL + file
}

// MainMenu renders the three-feature welcome carousel.
func (r *Renderer) MainMenu() []message.Message {
	return []message.Message{message.Carousel{
		AltText:          "歡迎選單",
		ImageAspectRatio: "rectangle",
		ImageSize:        "cover",
		Columns: []message.Column{
			{
				ImageURL: r.imageURL("image3.png"),
				Title:    "💱外幣換算服務",
				Text:     "小金可以幫我換算匯率唷！",
				Actions:  []message.Action{{Label: "我要換算外幣", Text: r.labels.MenuForex}},
			},
			{
				ImageURL: r.imageURL("image4.png"),
				Title:    "📚 金融小學堂",
				Text:     "小金金融業務認證",
				Actions:  []message.Action{{Label: "我要認證考", Text: r.labels.MenuQuiz}},
			},
			{
				ImageURL: r.imageURL("image5.png"),
				Title:    "֍金融AI客服服務",
				Text:     "可以問問小金金融相關問題唷",
				Actions:  []message.Action{{Label: "我要詢問小金AI", Text: r.labels.MenuAI}},
			},
		},
	}}
}

// Welcome renders the follow-event greeting bubble.
func (r *Renderer) Welcome(name string) message.Message {
	return message.Flex{
		AltText: "歡迎加入",
		Contents: mustJSON(map[string]any{
			"type": "bubble",
			"body": map[string]any{
				"type":   "box",
				"layout": "vertical",
				"contents": []any{
					map[string]any{
						"type":   "text",
						"text":   fmt.Sprintf("歡迎 %s 加入！", name),
						"weight": "bold",
						"size":   "lg",
						"wrap":   true,
					},
					map[string]any{
						"type":   "text",
						"text":   "您已成為「一般會員」，祝您使用愉快！",
						"margin": "md",
						"wrap":   true,
					},
				},
			},
		}),
	}
}

// DirectionPrompt renders the forex direction-choice card.
func (r *Renderer) DirectionPrompt() message.Message {
	return message.Flex{
		AltText: "選擇換算方式",
		Contents: mustJSON(map[string]any{
			"type": "bubble",
			"body": map[string]any{
				"type":    "box",
				"layout":  "vertical",
				"spacing": "md",
				"contents": []any{
					map[string]any{
						"type":    "text",
						"text":    fmt.Sprintf("請從按鈕選擇『%s』或『%s』", r.labels.ToForeign, r.labels.ToLocal),
						"wrap":    true,
						"weight":  "bold",
						"gravity": "center",
						"size":    "lg",
					},
					map[string]any{
						"type":    "box",
						"layout":  "vertical",
						"spacing": "md",
						"contents": []any{
							messageButton(r.labels.ToForeign, r.labels.ToForeign, "primary"),
							messageButton(r.labels.ToLocal, r.labels.ToLocal, "secondary"),
						},
					},
				},
				"paddingAll": "xl",
			},
		}),
	}
}

// CurrencyCarousel renders one card per offered currency.
func (r *Renderer) CurrencyCarousel(currencies []config.Currency) message.Message {
	columns := make([]message.Column, 0, len(currencies))
	for _, c := range currencies {
		columns = append(columns, message.Column{
			ImageURL: r.imageURL(c.Image),
			Title:    fmt.Sprintf("兌換%s服務", c.Name),
			Text:     c.Name,
			Actions:  []message.Action{{Label: fmt.Sprintf("兌換%s", c.Name), Text: c.Name}},
		})
	}
	return message.Carousel{AltText: "選擇幣種", ImageAspectRatio: "square", Columns: columns}
}

// ConversionResult renders the step-4 result card with the continue /
// main-menu actions.
func (r *Renderer) ConversionResult(amountLine, convertedLine, rateLine string) message.Message {
	return message.Flex{
		AltText: "換算結果",
		Contents: mustJSON(map[string]any{
			"type": "bubble",
			"body": map[string]any{
				"type":   "box",
				"layout": "vertical",
				"contents": []any{
					map[string]any{"type": "text", "text": amountLine, "weight": "bold", "size": "lg"},
					map[string]any{"type": "text", "text": convertedLine, "weight": "bold", "size": "lg"},
					map[string]any{"type": "text", "text": rateLine, "size": "sm"},
				},
			},
			"footer": map[string]any{
				"type":   "box",
				"layout": "vertical",
				"contents": []any{
					map[string]any{
						"type":         "button",
						"style":        "primary",
						"offsetBottom": "md",
						"action": map[string]any{
							"type":  "message",
							"label": "繼續換匯",
							"text":  r.labels.ToForeign,
						},
					},
					messageButton("回主選單", r.labels.MainMenu, "secondary"),
				},
			},
		}),
	}
}

// AIModeCard renders the "AI customer service" entry card.
func (r *Renderer) AIModeCard() message.Message {
	return message.Flex{
		AltText: "AI客服模式",
		Contents: mustJSON(map[string]any{
			"type": "bubble",
			"body": map[string]any{
				"type":    "box",
				"layout":  "vertical",
				"spacing": "md",
				"contents": []any{
					map[string]any{
						"type":    "text",
						"text":    "已進入AI客服模式，請輸入您的金融相關問題！",
						"wrap":    true,
						"weight":  "bold",
						"gravity": "center",
						"size":    "xl",
					},
					map[string]any{
						"type": "text",
						"text": fmt.Sprintf("執行「%s」退出AI客服", r.labels.ExitAI),
					},
					map[string]any{
						"type":   "box",
						"layout": "vertical",
						"contents": []any{
							messageButton(r.labels.ExitAI, r.labels.ExitAI, "secondary"),
						},
					},
				},
			},
		}),
	}
}

// QuestionBubble renders a quiz question card from the loaded template.
// The options are rendered in the order given; the caller decides the
// shuffle. A broken template falls back to a plain bubble so the quiz
// keeps working.
func (r *Renderer) QuestionBubble(level string, index int, question string, options []string) message.Message {
	buttons := make([]any, 0, len(options))
	for _, option := range options {
		btn := messageButton(option, option, "primary")
		btn["margin"] = "sm"
		buttons = append(buttons, btn)
	}

	if bubble, ok := r.fillQuestionTemplate(level, index, question, buttons); ok {
		return message.Flex{AltText: "金融考題", Contents: bubble}
	}

	contents := []any{
		map[string]any{"type": "text", "text": fmt.Sprintf("【%s】第 %d 題", level, index+1), "size": "sm"},
		map[string]any{"type": "text", "text": question, "weight": "bold", "size": "lg", "wrap": true},
		map[string]any{"type": "separator", "margin": "md"},
		map[string]any{"type": "box", "layout": "vertical", "spacing": "sm", "margin": "md", "contents": buttons},
	}
	return message.Flex{
		AltText: "金融考題",
		Contents: mustJSON(map[string]any{
			"type": "bubble",
			"body": map[string]any{"type": "box", "layout": "vertical", "contents": contents},
		}),
	}
}

// fillQuestionTemplate substitutes the placeholders and injects the
// option buttons into the template's fourth body block.
func (r *Renderer) fillQuestionTemplate(level string, index int, question string, buttons []any) (json.RawMessage, bool) {
	if r.quizTemplate == "" {
		return nil, false
	}
	tpl := r.quizTemplate
	tpl = strings.ReplaceAll(tpl, "%%LEVEL%%", level)
	tpl = strings.ReplaceAll(tpl, "%%INDEX%%", fmt.Sprintf("%d", index+1))
	tpl = strings.ReplaceAll(tpl, "%%QUESTION%%", question)

	var bubble map[string]any
	if err := json.Unmarshal([]byte(tpl), &bubble); err != nil {
		r.log.Warn().Err(err).Msg("question template is not valid JSON")
		return nil, false
	}
	body, ok := bubble["body"].(map[string]any)
	if !ok {
		return nil, false
	}
	contents, ok := body["contents"].([]any)
	if !ok || len(contents) < 4 {
		return nil, false
	}
	block, ok := contents[3].(map[string]any)
	if !ok {
		return nil, false
	}
	block["contents"] = buttons

	out, err := json.Marshal(bubble)
	if err != nil {
		return nil, false
	}
	return out, true
}

func messageButton(label, text, style string) map[string]any {
	return map[string]any{
		"type":  "button",
		"style": style,
		"action": map[string]any{
			"type":  "message",
			"label": label,
			"text":  text,
		},
	}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Map literals of strings cannot fail to marshal.
		panic(err)
	}
	return data
}
