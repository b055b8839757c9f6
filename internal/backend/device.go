package backend

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Device is the compute target a backend is loaded onto.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// probe abstracts the host lookups used for accelerator detection.
type probe struct {
	lookupEnv func(string) (string, bool)
	stat      func(string) (os.FileInfo, error)
	lookPath  func(string) (string, error)
}

var hostProbe = probe{lookupEnv: os.LookupEnv, stat: os.Stat, lookPath: exec.LookPath}

// SelectDevice resolves a preference (auto, cpu, cuda) to a concrete device.
// auto picks cuda when an NVIDIA accelerator is visible on the host.
func SelectDevice(pref string) (Device, error) {
	return selectDevice(pref, hostProbe)
}

func selectDevice(pref string, p probe) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(pref))) {
	case "", DeviceAuto:
		if cudaVisible(p) {
			return DeviceCUDA, nil
		}
		return DeviceCPU, nil
	case DeviceCPU:
		return DeviceCPU, nil
	case DeviceCUDA:
		return DeviceCUDA, nil
	default:
		return "", fmt.Errorf("invalid device: %s", pref)
	}
}

func cudaVisible(p probe) bool {
	if v, ok := p.lookupEnv("CUDA_VISIBLE_DEVICES"); ok {
		// An explicit empty value or -1 hides every device.
		v = strings.TrimSpace(v)
		return v != "" && v != "-1"
	}
	if _, err := p.stat("/dev/nvidia0"); err == nil {
		return true
	}
	if _, err := p.lookPath("nvidia-smi"); err == nil {
		return true
	}
	return false
}
