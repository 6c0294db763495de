package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// DefaultCMSPorts はCMSへの接続で既定で許可するポート。
var DefaultCMSPorts = []int{80, 443}

var allowedSchemes = []string{"http", "https"}

// blockedNetworks は内部ネットワークとして接続を拒否するアドレス範囲。
// クラウドメタデータIP (169.254.169.254) はリンクローカルに含まれる。
var blockedNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

var blockedHostnames = []string{"localhost"}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR: %s: %v", cidr, err))
		}
		networks = append(networks, network)
	}
	return networks
}

// OutboundGuard はCMSへの接続先を制限する。
// allowPrivateがfalseの場合、プライベートIP・ループバック・リンクローカルへの接続を
// safeurlがDNS解決後のアドレスで拒否する（DNS再バインディング対策を含む）。
// CMSを同一ネットワーク内で運用する場合はallowPrivateをtrueにする。
type OutboundGuard struct {
	allowPrivate bool
	ports        []int
}

// NewOutboundGuard はOutboundGuardを生成する。portsが空の場合はDefaultCMSPortsを使う。
func NewOutboundGuard(allowPrivate bool, ports ...int) *OutboundGuard {
	if len(ports) == 0 {
		ports = DefaultCMSPorts
	}
	return &OutboundGuard{allowPrivate: allowPrivate, ports: ports}
}

// Client はCMSへのリクエストに使うHTTPクライアントを返す。
func (g *OutboundGuard) Client(timeout time.Duration) *http.Client {
	if g.allowPrivate {
		return &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(g.ports...).
		Build()
	return safeurl.Client(config).Client
}

// CheckBaseURL はCMSのベースURLをDNS解決を伴わずに検証する。
// 起動時の設定確認に使い、実際の接続時の検証はClientが行う。
func (g *OutboundGuard) CheckBaseURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("URLが空です")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URLを解釈できません: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !slices.Contains(allowedSchemes, scheme) {
		return fmt.Errorf("許可されていないスキームです: %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("ホストがありません: %s", rawURL)
	}

	if g.allowPrivate {
		return nil
	}

	if !g.portAllowed(parsed) {
		return fmt.Errorf("許可されていないポートです: %s", parsed.Port())
	}
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("内部ネットワークのアドレスです: %s", ip)
		}
		return nil
	}
	if slices.Contains(blockedHostnames, strings.ToLower(host)) {
		return fmt.Errorf("内部ホストです: %s", host)
	}
	return nil
}

func (g *OutboundGuard) portAllowed(u *url.URL) bool {
	p := u.Port()
	if p == "" {
		return true
	}
	for _, allowed := range g.ports {
		if strconv.Itoa(allowed) == p {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
