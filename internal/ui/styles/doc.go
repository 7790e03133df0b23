// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the playground TUI.

All colors are Lip Gloss AdaptiveColors so the same palette works on light
and dark terminals. NewTheme detects the color profile with termenv; the
background can be forced with the "dark" or "light" theme mode.

# Color System (colors.go)

  - Purple - Assistant entries and the header brand
  - Cyan - User entries, prompts and key hints
  - Emerald - Success and the available-model indicator
  - Amber - Warnings and staged attachments
  - Rose - Failed turns and errors

# Theme (theme.go)

Theme bundles the styles used by the chat view: header, message labels,
failed entries, attachment chips, the model list panel, and the status bar.
*/
package styles
