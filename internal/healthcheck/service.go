package healthcheck

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/arrdem/bbdb/pkg/logs"
)

const (
	transportProtocol = "udp"
	msgBytes          = 1
	ackMsg            = 2
	readTimeout       = time.Second
)

// Service answers liveness pings over UDP while the topology runs. A process
// supervisor probes the port and restarts the worker process when the acks
// stop coming.
type Service struct {
	listener *net.UDPConn
}

func NewService(port uint16) (*Service, error) {
	udpAddr, err := net.ResolveUDPAddr(transportProtocol, fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}

	listener, err := net.ListenUDP(transportProtocol, udpAddr)
	if err != nil {
		return nil, err
	}

	return &Service{listener: listener}, nil
}

// Listen acks ping datagrams until the context is cancelled. Reads are
// deadline-bounded so cancellation is observed promptly.
func (h *Service) Listen(ctx context.Context) {
	defer h.Close()

	buf := make([]byte, msgBytes)
	for ctx.Err() == nil {
		_ = h.listener.SetReadDeadline(time.Now().Add(readTimeout))
		_, addr, err := h.listener.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			logs.Logger.Warningf("Error reading health check message: %v", err)
			continue
		}

		if _, err = h.listener.WriteToUDP([]byte{ackMsg}, addr); err != nil {
			logs.Logger.Errorf("Error sending health check ack: %v", err)
		}
	}

	logs.Logger.Infof("Closing health check listener")
}

func (h *Service) Close() {
	_ = h.listener.Close()
}
