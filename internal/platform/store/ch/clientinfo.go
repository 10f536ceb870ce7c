package ch

import (
	"os"
	"runtime"
	"strings"

	"formdata/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo tags the connection so event inserts can be traced to a build and host
// empty values are dropped
func BuildClientInfo(role, tag string) clickhouse.ClientInfo {
	bi := version.Info()
	host, _ := os.Hostname()

	var info clickhouse.ClientInfo
	add := func(name, v string) {
		if v = strings.TrimSpace(v); v != "" {
			info.Products = append(info.Products, struct{ Name, Version string }{name, v})
		}
	}
	add(strings.TrimSpace(bi.Service), bi.Version)
	add("app", tag)
	add("role", role)
	add("commit", bi.Commit)
	add("go", runtime.Version())
	add("host", host)
	return info
}
