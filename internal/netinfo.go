package internal

import (
	"encoding/base64"
	"fmt"
	"net"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// LocalIP returns the first non-loopback IPv4 address of this machine, or
// "localhost" when none is up. Peers on the LAN connect through it.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "localhost"
}

// ShareURL turns a listen address like ":8080" or "0.0.0.0:8080" into the
// URL LAN peers should open.
func ShareURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = LocalIP()
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}

// QRDataURL renders the URL as a PNG QR code packed into a data URL, ready
// to drop into an <img> tag.
func QRDataURL(url string) (string, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
