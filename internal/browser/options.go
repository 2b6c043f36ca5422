// internal/browser/options.go
package browser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/boxscope/internal/config"
)

// allocatorFlags computes the Chromium command line switches for cfg. A false value
// removes a switch that chromedp would otherwise pass by default.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                               cfg.Headless,
		"hide-scrollbars":                        cfg.Headless,
		"mute-audio":                             true,
		"no-sandbox":                             true,
		"no-first-run":                           true,
		"no-default-browser-check":               true,
		"disable-dev-shm-usage":                  true,
		"disable-gpu":                            cfg.DisableGPU,
		"disable-renderer-backgrounding":         true,
		"disable-background-timer-throttling":    true,
		"disable-backgrounding-occluded-windows": true,
		"disable-features":                       "Translate,OptimizationHints,MediaRouter",
		"enable-automation":                      true,
	}

	if w, h := cfg.Viewport.Width, cfg.Viewport.Height; w > 0 && h > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", w, h)
	}

	// User args win over the defaults above.
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if key, value, ok := strings.Cut(arg, "="); ok {
			flags[key] = value
		} else {
			flags[arg] = true
		}
	}
	return flags
}

// DefaultAllocatorOptions returns the chromedp exec allocator options for cfg,
// starting from chromedp's defaults.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	flags := allocatorFlags(cfg)
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, chromedp.Flag(k, flags[k]))
	}
	return opts
}
