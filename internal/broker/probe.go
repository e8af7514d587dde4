package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// ClusterInfo is what Probe learned from the first reachable broker.
type ClusterInfo struct {
	Addr       string
	Brokers    []kafka.Broker
	Partitions []kafka.Partition
}

// Probe dials the brokers in order and reads cluster metadata from the first
// one that answers. When topic is not empty its partitions are read too.
func Probe(ctx context.Context, addrs []string, clientID, topic string) (ClusterInfo, error) {
	if len(addrs) == 0 {
		return ClusterInfo{}, errors.New("no brokers configured")
	}

	dialer := &kafka.Dialer{ClientID: clientID}

	var errs []error
	for _, addr := range addrs {
		info, err := probeOne(ctx, dialer, addr, topic)
		if err == nil {
			return info, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		if ctx.Err() != nil {
			break
		}
	}
	return ClusterInfo{}, errors.Join(errs...)
}

func probeOne(ctx context.Context, dialer *kafka.Dialer, addr, topic string) (ClusterInfo, error) {
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ClusterInfo{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	brokers, err := conn.Brokers()
	if err != nil {
		return ClusterInfo{}, fmt.Errorf("read brokers: %w", err)
	}
	info := ClusterInfo{Addr: addr, Brokers: brokers}

	if topic != "" {
		partitions, err := conn.ReadPartitions(topic)
		if err != nil {
			return ClusterInfo{}, fmt.Errorf("read partitions for %s: %w", topic, err)
		}
		info.Partitions = partitions
	}
	return info, nil
}
