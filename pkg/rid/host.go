package rid

import "runtime"

// HostRID returns the portable RID of the machine packforge runs on, e.g.
// "linux-x64" or "osx-arm64". Unknown platforms map to "" so callers can
// report an unsupported host instead of guessing.
func HostRID() string {
	return hostRID(runtime.GOOS, runtime.GOARCH)
}

func hostRID(goos, goarch string) string {
	var osPart string
	switch goos {
	case "windows":
		osPart = "win"
	case "linux":
		osPart = "linux"
	case "darwin":
		osPart = "osx"
	case "freebsd":
		osPart = "freebsd"
	default:
		return ""
	}

	var arch string
	switch goarch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "x86"
	case "arm64":
		arch = "arm64"
	case "arm":
		arch = "arm"
	case "s390x", "ppc64le", "loong64":
		arch = goarch
	default:
		return ""
	}
	return osPart + "-" + arch
}
