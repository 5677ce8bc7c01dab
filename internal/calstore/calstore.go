// Package calstore persists and reloads gyro and magnetometer calibration
// results to flat text files (C10), tolerating a missing file as "no
// calibration yet" rather than an error.
package calstore

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/mpu9250dmp/internal/calibration"
)

// LoadGyroBias reads a gyro.cal file: three lines, each a decimal integer
// offset for X, Y, Z. A missing file returns the zero bias and ok=false,
// not an error.
func LoadGyroBias(path string) (bias calibration.GyroBias, ok bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return calibration.GyroBias{}, false, nil
	}
	if err != nil {
		return calibration.GyroBias{}, false, err
	}
	defer f.Close()

	vals := make([]float64, 0, 3)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		iv, err := strconv.Atoi(line)
		if err != nil {
			return calibration.GyroBias{}, false, fmt.Errorf("calstore: %s: %w", path, err)
		}
		vals = append(vals, float64(iv))
	}
	if err := sc.Err(); err != nil {
		return calibration.GyroBias{}, false, err
	}
	if len(vals) != 3 {
		return calibration.GyroBias{}, false, fmt.Errorf("calstore: %s: expected 3 lines, got %d", path, len(vals))
	}
	return calibration.GyroBias{X: vals[0], Y: vals[1], Z: vals[2]}, true, nil
}

// SaveGyroBias writes a gyro.cal file.
func SaveGyroBias(path string, b calibration.GyroBias) error {
	content := fmt.Sprintf("%d\n%d\n%d\n", int(b.X), int(b.Y), int(b.Z))
	return os.WriteFile(path, []byte(content), 0644)
}

// LoadMagCal reads a mag.cal file: six lines of %f, offset x/y/z then scale
// x/y/z. A missing file returns the zero value and ok=false.
func LoadMagCal(path string) (cal calibration.MagCal, ok bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return calibration.MagCal{}, false, nil
	}
	if err != nil {
		return calibration.MagCal{}, false, err
	}
	defer f.Close()

	vals := make([]float64, 0, 6)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fv, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return calibration.MagCal{}, false, fmt.Errorf("calstore: %s: %w", path, err)
		}
		vals = append(vals, fv)
	}
	if err := sc.Err(); err != nil {
		return calibration.MagCal{}, false, err
	}
	if len(vals) != 6 {
		return calibration.MagCal{}, false, fmt.Errorf("calstore: %s: expected 6 lines, got %d", path, len(vals))
	}
	return calibration.MagCal{
		OffsetX: vals[0], OffsetY: vals[1], OffsetZ: vals[2],
		ScaleX: vals[3], ScaleY: vals[4], ScaleZ: vals[5],
	}, true, nil
}

// SaveMagCal writes a mag.cal file.
func SaveMagCal(path string, c calibration.MagCal) error {
	content := fmt.Sprintf("%f\n%f\n%f\n%f\n%f\n%f\n",
		c.OffsetX, c.OffsetY, c.OffsetZ, c.ScaleX, c.ScaleY, c.ScaleZ)
	return os.WriteFile(path, []byte(content), 0644)
}
