// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package today

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/habitrun/internal/config"
	"github.com/jeranaias/habitrun/internal/ui/styles"
)

// Run shows the view until the user quits. When configPath is set, edits
// to the config file are applied while the view is open.
func Run(ctx context.Context, deps Deps, configPath string) error {
	m := New(ctx, styles.NewTheme(), deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if configPath != "" {
		w, err := config.Watch(configPath,
			func(cfg *config.Config) { p.Send(ConfigChangedMsg{Config: cfg}) },
			func(err error) { p.Send(ConfigErrorMsg{Err: err}) })
		if err != nil {
			// The view works without live reload.
			m.log.WithError(err).Warn("config watch unavailable")
		} else {
			defer w.Close()
		}
	}

	_, err := p.Run()
	return err
}
