// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpsource

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/packetd/nukleus-http/fabric"
	"github.com/packetd/nukleus-http/internal/splitio"
)

// trimCRLF 去掉 splitio.Reader 保留的行尾换行符（`\r\n` 或 `\n`）
func trimCRLF(line []byte) []byte {
	return bytes.TrimRight(line, "\r\n")
}

// parseOutcome 描述了一次请求头解析的结果与其对应的失败响应类型
type parseOutcome int

const (
	parseOK parseOutcome = iota
	parseBadRequest
	parseUnsupportedVersion
	parseHeadersTooLarge
)

// parsedRequest 是请求行与 header 解析后的中间产物
type parsedRequest struct {
	headers       *fabric.Headers
	contentLength int
	hasUpgrade    bool
}

// parseRequestHeaders 解析 [start, p) 区间内的请求行与 header 块
//
// headerBlock 不包含结尾的 CRLF CRLF
func parseRequestHeaders(headerBlock []byte) (*parsedRequest, parseOutcome) {
	lr := splitio.NewReader(headerBlock)

	requestLine, eof := lr.ReadLine()
	if eof || len(trimCRLF(requestLine)) == 0 {
		return nil, parseBadRequest
	}

	tokens := bytes.Fields(trimCRLF(requestLine))
	if len(tokens) != 3 {
		return nil, parseBadRequest
	}
	method := string(tokens[0])
	requestTarget := string(tokens[1])
	version := string(tokens[2])

	if !isSupportedVersion(version) {
		return nil, parseUnsupportedVersion
	}

	path, authority, hasUserinfo, ok := splitRequestTarget(requestTarget)
	if !ok || hasUserinfo {
		return nil, parseBadRequest
	}

	headers := fabric.NewHeaders()
	headers.Set(":scheme", "http")
	headers.Set(":method", method)
	headers.Set(":path", path)
	if authority != "" {
		headers.Set(":authority", authority)
	}

	hostSeen := ""
	for {
		raw, eof := lr.ReadLine()
		if eof {
			break
		}
		line := trimCRLF(raw)
		if len(line) == 0 {
			continue
		}
		idx := bytes.IndexByte(line, ':')
		if idx <= 0 {
			return nil, parseBadRequest
		}
		name := strings.ToLower(strings.TrimSpace(string(line[:idx])))
		value := strings.TrimSpace(string(line[idx+1:]))
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, parseBadRequest
		}
		if name == "host" {
			hostSeen = value
			continue
		}
		headers.Add(name, value)
	}

	// RFC 7230 §5.5: URI authority 优先于 Host header；只有前者缺失时才采用后者
	if authority == "" {
		if hostSeen == "" {
			return nil, parseBadRequest
		}
		headers.Set(":authority", hostSeen)
	}

	contentLength := 0
	if v := headers.Get("content-length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, parseBadRequest
		}
		contentLength = n
	}

	return &parsedRequest{
		headers:       headers,
		contentLength: contentLength,
		hasUpgrade:    headers.Has("upgrade"),
	}, parseOK
}

func isSupportedVersion(version string) bool {
	if !strings.HasPrefix(version, "HTTP/1.") {
		return false
	}
	rest := version[len("HTTP/1."):]
	return len(rest) == 1 && rest[0] >= '0' && rest[0] <= '9'
}

// splitRequestTarget 解析请求行中的 REQUEST-TARGET
//
// 返回 path、URI 中携带的 authority（origin-form 下为空）以及是否出现了
// userinfo（形如 user:pass@host，RFC 7230 §2.7.1 明确禁止）
func splitRequestTarget(target string) (path, authority string, hasUserinfo bool, ok bool) {
	if strings.HasPrefix(target, "/") {
		u, err := url.ParseRequestURI(target)
		if err != nil {
			return "", "", false, false
		}
		return u.Path, "", false, true
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "", "", false, false
	}
	if u.User != nil {
		return "", "", true, true
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return path, u.Host, false, true
}
