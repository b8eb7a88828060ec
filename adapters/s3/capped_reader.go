package s3

import (
	"fmt"
	"io"
)

var ErrSizeLimitType *SizeLimitError

type SizeLimitError struct {
	MaxBytes int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("reach limit of %s", FormatBytes(e.MaxBytes))
}

// NewCappedReader 包裝一個讀取上限為 maxSize 的 Reader
// 讀取超過上限時返回 SizeLimitError
func NewCappedReader(r io.Reader, maxSize int64) io.Reader {
	return &cappedReader{r, maxSize, maxSize}
}

type cappedReader struct {
	reader io.Reader
	limit  int64 // 限制的總長度
	left   int64 // 還可以讀取的長度
}

func (r *cappedReader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	// 只需要讀到剩餘額度加一個位元組，就足以判斷
	// 來源是否超過上限
	if int64(len(p)) > r.left+1 {
		p = p[:r.left+1]
	}
	n, err = r.reader.Read(p)

	// 沒吃掉額度以外的內容，直接返回
	if int64(n) <= r.left {
		r.left -= int64(n)
		return n, err
	}

	// 超出上限，截斷並回報錯誤
	n = int(r.left)
	r.left = 0
	return n, &SizeLimitError{r.limit}
}
