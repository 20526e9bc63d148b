package bootstrap

import (
	"path/filepath"
	"runtime"
	"strings"
)

// venvBinDir returns the executable directory inside a virtual
// environment ("Scripts" on Windows, "bin" elsewhere).
func venvBinDir(venvPath string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvPath, "Scripts")
	}
	return filepath.Join(venvPath, "bin")
}

// venvPython returns the interpreter inside the virtual environment.
func venvPython(venvPath string) string {
	name := "python"
	if runtime.GOOS == "windows" {
		name = "python.exe"
	}
	return filepath.Join(venvBinDir(venvPath), name)
}

// ActivationEnv builds the child environment that a shell-level
// "source venv/bin/activate" would have produced: the venv bin directory
// is prepended to PATH, VIRTUAL_ENV points at the environment, and
// PYTHONHOME is dropped. The base environment is not mutated.
func ActivationEnv(base []string, venvPath string) []string {
	bin := venvBinDir(venvPath)

	env := make([]string, 0, len(base)+2)
	pathSeen := false
	for _, kv := range base {
		key := envKey(kv)
		switch {
		case strings.EqualFold(key, "PYTHONHOME"):
			continue
		case strings.EqualFold(key, "VIRTUAL_ENV"):
			continue
		case key == "PATH":
			pathSeen = true
			env = append(env, "PATH="+bin+string(filepath.ListSeparator)+kv[len("PATH="):])
		default:
			env = append(env, kv)
		}
	}
	if !pathSeen {
		env = append(env, "PATH="+bin)
	}
	env = append(env, "VIRTUAL_ENV="+venvPath)

	return env
}

// envKey extracts the variable name from a KEY=value entry.
func envKey(kv string) string {
	if i := strings.IndexByte(kv, '='); i >= 0 {
		return kv[:i]
	}
	return kv
}
