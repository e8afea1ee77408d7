package routing

import (
	"fmt"
	"testing"
)

func TestReplicaIsStableAcrossRepeatedLookups(t *testing.T) {
	r := NewRouter("a:1", "b:1", "c:1")

	first, err := r.Replica("node-42")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		got, err := r.Replica("node-42")
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("expected repeated lookups of the same key to agree, got %q then %q", first, got)
		}
	}
}

func TestReplicaErrorsWithNoReplicas(t *testing.T) {
	r := NewRouter()
	if _, err := r.Replica("anything"); err == nil {
		t.Fatal("expected an error with no replicas configured")
	}
}

// TestRemoveReplicaOnlyReshufflesItsOwnKeys is the defining property of
// rendezvous hashing over modulo sharding: removing one replica must not
// change the assignment of keys that were not routed to it.
func TestRemoveReplicaOnlyReshufflesItsOwnKeys(t *testing.T) {
	replicas := []string{"a:1", "b:1", "c:1", "d:1", "e:1"}
	r := NewRouter(replicas...)

	keys := make([]string, 200)
	before := make(map[string]string, len(keys))
	for i := range keys {
		keys[i] = fmt.Sprintf("node-%d", i)
		replica, err := r.Replica(keys[i])
		if err != nil {
			t.Fatal(err)
		}
		before[keys[i]] = replica
	}

	r.RemoveReplica("c:1")

	for _, key := range keys {
		was := before[key]
		now, err := r.Replica(key)
		if err != nil {
			t.Fatal(err)
		}
		if was != "c:1" && now != was {
			t.Fatalf("key %s was reassigned from %s to %s despite not being on the removed replica", key, was, now)
		}
	}
}

func TestReplicasReturnsSortedSet(t *testing.T) {
	r := NewRouter("c:1", "a:1", "b:1")
	got := r.Replicas()
	want := []string{"a:1", "b:1", "c:1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected sorted replicas %v, got %v", want, got)
		}
	}
}
