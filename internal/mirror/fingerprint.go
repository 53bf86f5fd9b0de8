package mirror

import (
	"crypto/md5"
	"encoding/hex"
)

// Fingerprint is the hex MD5 of data, which is what S3 reports as the ETag of a single-part
// upload. Multipart ETags (`<md5>-<parts>`) never match, so such objects are re-uploaded once
// and stored single-part afterwards.
func Fingerprint(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
