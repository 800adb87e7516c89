// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup_cmd.go - API key and model setup.
//
// USAGE:
//
//	habitrun setup                       Interactive: key, then model choice
//	habitrun setup --key KEY [--model M] Non-interactive
//	habitrun setup --list-models         Show models usable with the saved key
//	habitrun setup --show                Show the current settings
//	habitrun setup --clear               Forget the saved key

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/habitrun/internal/config"
	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/offline"
	"github.com/jeranaias/habitrun/internal/util"
)

// SetupData is the JSON form of the setup command.
type SetupData struct {
	KeyFingerprint string             `json:"key_fingerprint,omitempty"`
	Model          string             `json:"model"`
	Offline        bool               `json:"offline"`
	Models         []gemini.ModelInfo `json:"models,omitempty"`
}

// HandleSetup handles "habitrun setup".
func (a *App) HandleSetup(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json", "list-models", "show", "clear")

	switch {
	case p.BoolFlag("show"):
		return a.showSettings(ctx, p)
	case p.BoolFlag("clear"):
		if err := a.Settings.Save(ctx, "", ""); err != nil {
			return err
		}
		return a.emit(p, "setup", map[string]bool{"cleared": true}, func() {
			a.success("API key removed")
		})
	case p.BoolFlag("list-models"):
		key, err := a.Settings.APIKey(ctx)
		if err != nil {
			return err
		}
		models, err := a.listModels(ctx, p, key)
		if err != nil {
			return err
		}
		return a.emit(p, "setup", models, func() { a.printModels(models, "") })
	case p.HasFlag("key"):
		return a.saveSettings(ctx, p, p.Flag("key"), p.Flag("model"))
	}

	if a.jsonMode(p) {
		return NewValidationError("setup", "", "use --key (and --model) in JSON mode")
	}
	return a.setupWizard(ctx, p)
}

func (a *App) setupWizard(ctx context.Context, p *ArgParser) error {
	pr := a.newPrompter()
	defer pr.Close()

	currentKey, err := a.Settings.APIKey(ctx)
	if err != nil {
		return err
	}
	currentModel, err := a.Settings.Model(ctx)
	if err != nil {
		return err
	}

	a.println(TitleStyle.Render("habitrun setup"))
	a.println(RenderSeparator())
	a.println("Get a key at https://aistudio.google.com/app/apikey")
	if currentKey != "" {
		a.printf("Current key: %s (press Enter to keep it)\n", gemini.KeyFingerprint(currentKey))
	}

	key, err := pr.Secret("Gemini API key: ")
	if err != nil {
		return err
	}
	if key == "" {
		key = currentKey
	}
	if key == "" {
		return NewValidationError("API key", "", "is required")
	}

	model := currentModel
	if !a.Monitor.IsOffline() {
		models, err := a.listModels(ctx, p, key)
		switch {
		case err == nil && len(models) > 0:
			a.printModels(models, currentModel)
			model, err = chooseModel(pr, models, currentModel)
			if err != nil {
				return err
			}
		case err != nil:
			// A rejected key is worth stopping for; anything else is not.
			var httpErr *gemini.HTTPError
			if errors.As(err, &httpErr) && (httpErr.Status == 400 || httpErr.Status == 401 || httpErr.Status == 403) {
				return err
			}
			a.printf("%s Could not list models: %s\n", WarningStyle.Render("[WARN]"), UserMessage(err))
			model, err = pr.PromptDefault("Model", currentModel)
			if err != nil {
				return err
			}
		}
	} else {
		a.println(DimStyle.Render("Offline: skipping the model list."))
		model, err = pr.PromptDefault("Model", currentModel)
		if err != nil {
			return err
		}
	}

	return a.saveSettings(ctx, p, key, model)
}

// chooseModel asks for a number or a model id.
func chooseModel(pr *prompter, models []gemini.ModelInfo, current string) (string, error) {
	answer, err := pr.PromptDefault("Model number or name", current)
	if err != nil {
		return "", err
	}
	if n, convErr := strconv.Atoi(answer); convErr == nil {
		if n < 1 || n > len(models) {
			return "", NewValidationError("model", answer, fmt.Sprintf("pick 1-%d", len(models)))
		}
		return models[n-1].ID(), nil
	}
	return strings.TrimPrefix(answer, "models/"), nil
}

func (a *App) listModels(ctx context.Context, p *ArgParser, key string) ([]gemini.ModelInfo, error) {
	var models []gemini.ModelInfo
	err := a.withSpinner(p, "Fetching models", func() error {
		var err error
		models, err = a.Client.ListModels(ctx, key)
		return err
	})
	return models, err
}

func (a *App) printModels(models []gemini.ModelInfo, current string) {
	a.println(SectionStyle.Render("Models"))
	for i, m := range models {
		marker := "  "
		if m.ID() == current {
			marker = SuccessStyle.Render("* ")
		}
		a.printf("%s%2d. %-32s %s\n", marker, i+1, m.ID(), DimStyle.Render(m.Label()))
	}
}

func (a *App) saveSettings(ctx context.Context, p *ArgParser, key, model string) error {
	if strings.TrimSpace(key) == "" {
		return NewValidationError("API key", "", "is required")
	}
	if err := a.Settings.Save(ctx, key, model); err != nil {
		return err
	}
	saved, err := a.Settings.Model(ctx)
	if err != nil {
		return err
	}
	data := SetupData{KeyFingerprint: gemini.KeyFingerprint(key), Model: saved, Offline: a.Monitor.IsOffline()}
	return a.emit(p, "setup", data, func() {
		a.success("Settings saved (key %s, model %s)", data.KeyFingerprint, saved)
	})
}

func (a *App) showSettings(ctx context.Context, p *ArgParser) error {
	key, err := a.Settings.APIKey(ctx)
	if err != nil {
		return err
	}
	model, err := a.Settings.Model(ctx)
	if err != nil {
		return err
	}
	data := SetupData{Model: model, Offline: a.Monitor.IsOffline()}
	if key != "" {
		data.KeyFingerprint = gemini.KeyFingerprint(key)
	}
	return a.emit(p, "setup", data, func() {
		keyText := WarningStyle.Render("not set")
		if data.KeyFingerprint != "" {
			keyText = data.KeyFingerprint
		}
		a.printf("%s %s\n", RenderLabel("API key"), keyText)
		a.printf("%s %s\n", RenderLabel("Model"), model)
		a.printf("%s %s\n", RenderLabel("Assistant"), util.FirstNonEmpty(offline.StatusBadge(a.Monitor), "online"))
		a.printf("%s %s\n", RenderLabel("Config"), DimStyle.Render(a.configPath()))
	})
}

func (a *App) configPath() string {
	if a.Args.ConfigPath != "" {
		return a.Args.ConfigPath
	}
	path, err := config.Path()
	if err != nil {
		return "(unknown)"
	}
	return path
}
