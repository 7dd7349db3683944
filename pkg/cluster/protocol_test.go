package cluster

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clusterfs/plockd/pkg/rangelock"
)

// TestProtocol_TwoNodesConverge exercises the testable property from
// spec.md §8: two independently simulated nodes, fed the same
// sequence of delivered cluster messages, converge on identical dumps.
func TestProtocol_TwoNodesConverge(t *testing.T) {
	t.Parallel()

	handles := NewLoopbackCluster(2)
	engineA := rangelock.NewEngine()
	engineB := rangelock.NewEngine()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	protoA := NewProtocol(1, engineA, handles[0], nil)
	protoB := NewProtocol(2, engineB, handles[1], nil)

	wg.Add(2)
	go func() { defer wg.Done(); protoA.Run(ctx) }()
	go func() { defer wg.Done(); protoB.Run(ctx) }()

	lockA := rangelock.LockRequest{
		Identity: rangelock.Identity{NodeID: 1, Owner: 100},
		Number:   1, Start: 0, End: 99, Exclusive: true,
	}
	lockB := rangelock.LockRequest{
		Identity: rangelock.Identity{NodeID: 2, Owner: 200},
		Number:   1, Start: 200, End: 299, Exclusive: true,
	}

	if err := protoA.Submit(ctx, "group1", lockA, MessageLock); err != nil {
		t.Fatalf("Submit from A: %v", err)
	}
	if err := protoB.Submit(ctx, "group1", lockB, MessageLock); err != nil {
		t.Fatalf("Submit from B: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	dumpA := engineA.Group("group1").Dump()
	dumpB := engineB.Group("group1").Dump()
	if dumpA != dumpB {
		t.Fatalf("nodes diverged:\nA:\n%s\nB:\n%s", dumpA, dumpB)
	}
}

// TestProtocol_DropsForgedOrigin verifies deliver() drops a message
// whose transport-level sender does not match its claimed header node,
// mirroring receive_plock's EINVAL-and-drop path.
func TestProtocol_DropsForgedOrigin(t *testing.T) {
	t.Parallel()

	engine := rangelock.NewEngine()
	handles := NewLoopbackCluster(1)
	var replied bool
	proto := NewProtocol(1, engine, handles[0], func(rangelock.LockRequest, error) { replied = true })

	proto.deliver(Message{
		From:   9, // forged: does not match Header.NodeID
		Header: Header{NodeID: 1, Type: MessageLock},
		Group:  "group1",
		Request: rangelock.LockRequest{
			Identity: rangelock.Identity{NodeID: 1, Owner: 1},
			Number:   1, Start: 0, End: 10, Exclusive: true,
		},
	})

	if replied {
		t.Fatal("forged-origin message must not be applied or replied to")
	}
	if _, ok := engine.Group("group1").Resource(1); ok {
		t.Fatal("forged-origin message must not mutate engine state")
	}
}
