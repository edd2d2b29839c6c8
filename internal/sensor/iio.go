package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// channelsPerDevice matches the ADS1115: four single-ended inputs per
// chip, so eight channels need two devices.
const channelsPerDevice = 4

// NewIIOSampleFunc returns a SampleFunc reading raw values from the
// Linux IIO sysfs interface of the ADC chips. devices lists the sysfs
// device directories in channel order; channels beyond the listed
// devices read as zero.
//
// The kernel driver reports scale in millivolts per LSB, so volts are
// raw * scale / 1000.
func NewIIOSampleFunc(devices []string) SampleFunc {
	return func() (Readings, error) {
		var r Readings
		var firstErr error
		for ch := 0; ch < NumChannels; ch++ {
			dev := ch / channelsPerDevice
			if dev >= len(devices) {
				break
			}
			idx := ch % channelsPerDevice
			v, err := readChannel(devices[dev], idx)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			r[ch] = v
		}
		if firstErr != nil {
			return r, fmt.Errorf("iio read: %w", firstErr)
		}
		return r, nil
	}
}

func readChannel(device string, idx int) (float64, error) {
	raw, err := readSysfsFloat(filepath.Join(device, fmt.Sprintf("in_voltage%d_raw", idx)))
	if err != nil {
		return 0, err
	}
	scale, err := readSysfsFloat(filepath.Join(device, fmt.Sprintf("in_voltage%d_scale", idx)))
	if err != nil {
		// Older drivers expose a single shared scale attribute.
		scale, err = readSysfsFloat(filepath.Join(device, "in_voltage_scale"))
		if err != nil {
			return 0, err
		}
	}
	return raw * scale / 1000.0, nil
}

func readSysfsFloat(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
