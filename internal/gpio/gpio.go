// Package gpio reads the step sensor line with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the step sensor line.
type Reader interface {
	// Read returns the logical level of the step line: true while the
	// footfall contact is closed.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults for the step sensor line.
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17 // BCM numbering
)
