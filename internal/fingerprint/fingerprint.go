// Package fingerprint composes the JavaScript payload injected into a
// browser context to spoof navigator/GPU/WebGL/userAgentData surfaces,
// plus the supporting GPU-profile and Chrome-version tables.
package fingerprint

import (
	"fmt"
	"math/rand"
	"strings"
)

// Tier selects how much of the spoofing surface is applied.
type Tier int

const (
	TierNone Tier = iota
	TierBasic
	TierBasicWithConsole
	TierBasicNoWebGL
	TierMid
	TierFull
)

// AgentOS names the operating system the fingerprint should impersonate.
type AgentOS int

const (
	OSUnknown AgentOS = iota
	OSLinux
	OSMac
	OSWindows
	OSAndroid
)

// Viewport is the on-screen size the fingerprint reports to the page.
type Viewport struct {
	Width, Height int
}

// Options configures GenerateScript.
type Options struct {
	Tier        Tier
	OS          AgentOS
	Viewport    Viewport
	UserAgent   string
	ExtraScript string
	// Rand, if set, is used for GPU-profile and Chrome-version
	// randomization instead of the package-level default source. Tests
	// supply a seeded one for determinism.
	Rand *rand.Rand
}

func (o Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

// GenerateScript composes the full stealth payload for opts, in the fixed
// order the spec requires: hide chrome runtime marker, optionally hide
// console, override WebGL/hardware-concurrency (main thread only; worker
// scopes are not patched),
// override navigator.gpu limits, hide webdriver, rewrite plugins/mimeTypes,
// patch canvas/WGSL, spoof permissions/notifications, install touch APIs on
// mobile, inject screen metrics, spoof userAgentData, and finally wrap the
// caller's extra script in an IIFE.
func GenerateScript(opts Options) string {
	if opts.Tier == TierNone {
		return wrapIIFE(opts.ExtraScript)
	}
	gpu := pickGPUProfile(opts.OS, opts.rng())

	var b strings.Builder
	writeHideChromeRuntime(&b)
	if opts.Tier == TierBasicWithConsole {
		writeHideConsole(&b)
	}
	if opts.Tier != TierBasicNoWebGL {
		writeWebGLOverride(&b, gpu)
	}
	if opts.Tier == TierMid || opts.Tier == TierFull {
		writeGPULimits(&b, gpu)
		writeWebdriverHide(&b)
		writePluginsOverride(&b)
	}
	if opts.Tier == TierFull {
		writeCanvasPatch(&b, gpu)
		writePermissionsSpoof(&b)
		if opts.OS == OSAndroid {
			writeTouchAPIs(&b)
		}
		writeScreenMetrics(&b, opts.Viewport)
		writeUserAgentData(&b, opts.UserAgent)
	}
	b.WriteString(wrapIIFE(opts.ExtraScript))
	return b.String()
}

func wrapIIFE(script string) string {
	if strings.TrimSpace(script) == "" {
		return ""
	}
	return fmt.Sprintf("(function(){\n%s\n})();\n", script)
}

func writeHideChromeRuntime(b *strings.Builder) {
	b.WriteString(`Object.defineProperty(window, 'chrome', { get: () => undefined });` + "\n")
}

func writeHideConsole(b *strings.Builder) {
	b.WriteString(`for (const k of Object.keys(console)) { try { console[k] = () => {}; } catch (e) {} }` + "\n")
}

func writeWebGLOverride(b *strings.Builder, gpu GPUProfile) {
	fmt.Fprintf(b, `(function(){
  const patch = (proto) => {
    const orig = proto.getParameter;
    proto.getParameter = function(p) {
      if (p === 37445) return %q;
      if (p === 37446) return %q;
      return orig.call(this, p);
    };
  };
  patch(WebGLRenderingContext.prototype);
  if (typeof WebGL2RenderingContext !== 'undefined') patch(WebGL2RenderingContext.prototype);
  Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
  if (typeof Worker !== 'undefined') {
    const hc = %d;
    try { Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => hc }); } catch (e) {}
  }
})();
`, gpu.Vendor, gpu.Renderer, gpu.HardwareConcurrency, gpu.HardwareConcurrency)
}

func writeGPULimits(b *strings.Builder, gpu GPUProfile) {
	fmt.Fprintf(b, `(function(){
  if (!navigator.gpu) return;
  const origRequestAdapter = navigator.gpu.requestAdapter;
  navigator.gpu.requestAdapter = async function(opts) {
    const adapter = await origRequestAdapter.call(this, opts);
    if (!adapter) return adapter;
    adapter.__spoofedVendor = %q;
    adapter.__spoofedArchitecture = %q;
    return adapter;
  };
})();
`, gpu.WebGPUVendor, gpu.WebGPUArchitecture)
}

func writeWebdriverHide(b *strings.Builder) {
	b.WriteString(`Object.defineProperty(navigator, 'webdriver', { get: () => false });` + "\n")
}

func writePluginsOverride(b *strings.Builder) {
	b.WriteString(`Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'mimeTypes', { get: () => [1, 2] });
`)
}

func writeCanvasPatch(b *strings.Builder, gpu GPUProfile) {
	fmt.Fprintf(b, `(function(){
  const orig = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function(...args) {
    return orig.apply(this, args);
  };
  window.__canvasFormat = %q;
})();
`, gpu.CanvasFormat)
}

func writePermissionsSpoof(b *strings.Builder) {
	b.WriteString(`(function(){
  if (!navigator.permissions || !navigator.permissions.query) return;
  const orig = navigator.permissions.query;
  navigator.permissions.query = (params) => {
    if (params && params.name === 'notifications') {
      return Promise.resolve({ state: Notification && Notification.permission || 'default' });
    }
    return orig(params);
  };
})();
`)
}

func writeTouchAPIs(b *strings.Builder) {
	b.WriteString(`Object.defineProperty(navigator, 'maxTouchPoints', { get: () => 5 });` + "\n")
}

func writeScreenMetrics(b *strings.Builder, v Viewport) {
	if v.Width == 0 {
		v.Width = 1920
	}
	if v.Height == 0 {
		v.Height = 1080
	}
	fmt.Fprintf(b, `Object.defineProperty(window, 'innerWidth', { get: () => %d });
Object.defineProperty(window, 'innerHeight', { get: () => %d });
Object.defineProperty(screen, 'width', { get: () => %d });
Object.defineProperty(screen, 'height', { get: () => %d });
`, v.Width, v.Height, v.Width, v.Height)
}

func writeUserAgentData(b *strings.Builder, userAgent string) {
	major := extractChromeMajor(userAgent)
	full := spoofedFullVersion(major)
	notABrand := notABrandToken(major)
	fmt.Fprintf(b, `(function(){
  if (!navigator.userAgentData) return;
  const origGetHighEntropyValues = navigator.userAgentData.getHighEntropyValues;
  navigator.userAgentData.getHighEntropyValues = async function(hints) {
    const real = await origGetHighEntropyValues.call(this, hints);
    return Object.assign({}, real, {
      fullVersionList: [
        { brand: 'Chromium', version: %q },
        { brand: 'Google Chrome', version: %q },
        { brand: %q, version: '99.0.0.0' }
      ]
    });
  };
})();
`, full, full, notABrand)
}
