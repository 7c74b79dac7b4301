package diagnostics

import "os"

var (
	stat       = os.Stat
	writeProbe = probeWrite
)

type FileStatus struct {
	Present bool   `json:"present"`
	Path    string `json:"path,omitempty"`
}

// EnvironmentReport describes whether the process can do its job on
// this host: the data directory must be writable, and the store files
// are reported so a broken mount is visible before first use.
type EnvironmentReport struct {
	DataDir         string     `json:"data_dir"`
	DataDirWritable bool       `json:"data_dir_writable"`
	KnownDevices    FileStatus `json:"known_devices"`
	Favorites       FileStatus `json:"favorites"`
}

func InspectEnvironment(dataDir, knownPath, favoritesPath string) EnvironmentReport {
	return EnvironmentReport{
		DataDir:         dataDir,
		DataDirWritable: writeProbe(dataDir) == nil,
		KnownDevices:    detectFile(knownPath),
		Favorites:       detectFile(favoritesPath),
	}
}

func detectFile(path string) FileStatus {
	if _, err := stat(path); err != nil {
		return FileStatus{Present: false}
	}
	return FileStatus{Present: true, Path: path}
}

func probeWrite(dir string) error {
	f, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
