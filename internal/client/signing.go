package client

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// sign computes OVH's request signature: "$1$" + sha1(appSecret + "+" +
// consumerKey + "+" + method + "+" + url + "+" + body + "+" + timestamp).
func sign(appSecret, consumerKey, method, url, body string, timestamp int64) string {
	preimage := fmt.Sprintf("%s+%s+%s+%s+%s+%d", appSecret, consumerKey, method, url, body, timestamp)
	sum := sha1.Sum([]byte(preimage))
	return "$1$" + hex.EncodeToString(sum[:])
}

func timestampNow() int64 {
	return time.Now().Unix()
}

func timestampHeader(ts int64) string {
	return strconv.FormatInt(ts, 10)
}
