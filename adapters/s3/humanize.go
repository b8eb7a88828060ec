package s3

import "fmt"

// FormatBytes 把位元組數轉成人類可讀的大小
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d bytes", bytes)
	}
	units := []string{"KB", "MB", "GB", "TB", "PB"}
	value := float64(bytes)
	for i := 0; i < len(units); i++ {
		value /= unit
		if value < unit || i == len(units)-1 {
			return fmt.Sprintf("%.2f %s", value, units[i])
		}
	}
	return fmt.Sprintf("%d bytes", bytes)
}
