package fingerprint

import "math/rand"

// GPUProfile is a plausible GPU/renderer identity for a given OS.
type GPUProfile struct {
	Vendor              string
	Renderer            string
	HardwareConcurrency int
	WebGPUVendor        string
	WebGPUArchitecture  string
	CanvasFormat        string
}

// gpuTable holds several candidate profiles per OS; pickGPUProfile chooses
// one at random so repeated crawls of the same site don't all present an
// identical fingerprint.
var gpuTable = map[AgentOS][]GPUProfile{
	OSLinux: {
		{Vendor: "Google Inc. (Intel)", Renderer: "ANGLE (Intel, Mesa Intel(R) UHD Graphics 620 (KBL GT2), OpenGL 4.6)", HardwareConcurrency: 8, WebGPUVendor: "intel", WebGPUArchitecture: "gen-9", CanvasFormat: "rgba8unorm"},
		{Vendor: "Google Inc. (AMD)", Renderer: "ANGLE (AMD, AMD Radeon RX 580 Series (polaris10, LLVM 15.0.0), OpenGL 4.6)", HardwareConcurrency: 16, WebGPUVendor: "amd", WebGPUArchitecture: "rdna-1", CanvasFormat: "rgba8unorm"},
	},
	OSMac: {
		{Vendor: "Google Inc. (Apple)", Renderer: "ANGLE (Apple, Apple M1, OpenGL 4.1)", HardwareConcurrency: 8, WebGPUVendor: "apple", WebGPUArchitecture: "common-3", CanvasFormat: "bgra8unorm"},
		{Vendor: "Google Inc. (Apple)", Renderer: "ANGLE (Apple, Apple M2 Pro, OpenGL 4.1)", HardwareConcurrency: 12, WebGPUVendor: "apple", WebGPUArchitecture: "common-4", CanvasFormat: "bgra8unorm"},
	},
	OSWindows: {
		{Vendor: "Google Inc. (NVIDIA)", Renderer: "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)", HardwareConcurrency: 12, WebGPUVendor: "nvidia", WebGPUArchitecture: "ampere", CanvasFormat: "bgra8unorm"},
		{Vendor: "Google Inc. (Intel)", Renderer: "ANGLE (Intel, Intel(R) Iris(R) Xe Graphics Direct3D11 vs_5_0 ps_5_0, D3D11)", HardwareConcurrency: 8, WebGPUVendor: "intel", WebGPUArchitecture: "gen-12", CanvasFormat: "bgra8unorm"},
	},
	OSAndroid: {
		{Vendor: "Qualcomm", Renderer: "Adreno (TM) 660", HardwareConcurrency: 8, WebGPUVendor: "qualcomm", WebGPUArchitecture: "adreno", CanvasFormat: "rgba8unorm"},
	},
	OSUnknown: {
		{Vendor: "Google Inc.", Renderer: "ANGLE (Software Renderer)", HardwareConcurrency: 4, WebGPUVendor: "unknown", WebGPUArchitecture: "unknown", CanvasFormat: "rgba8unorm"},
	},
}

// pickGPUProfile returns a random profile plausible for os.
func pickGPUProfile(os AgentOS, r *rand.Rand) GPUProfile {
	profiles, ok := gpuTable[os]
	if !ok || len(profiles) == 0 {
		profiles = gpuTable[OSUnknown]
	}
	return profiles[r.Intn(len(profiles))]
}
