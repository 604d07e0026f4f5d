package master

import "testing"

func TestReplyCollectorPublishCopiesBuffer(t *testing.T) {
	c := NewReplyCollector(4)
	buf := []byte("=1 hello\n\n")
	c.Publish(buf)

	buf[0] = 'X' // mutate the caller's buffer after publishing

	got := c.Replies()
	if len(got) != 1 {
		t.Fatalf("Count() = %d, want 1", len(got))
	}
	if got[0][0] != '=' {
		t.Fatalf("Publish should have copied the reply, but it aliases the caller's buffer")
	}
}

func TestReplyCollectorResetDiscardsReplies(t *testing.T) {
	c := NewReplyCollector(4)
	c.Publish([]byte("=1 a\n\n"))
	c.Publish([]byte("=1 b\n\n"))
	if c.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", c.Count())
	}
	c.Reset()
	if c.Count() != 0 {
		t.Fatalf("Count() after Reset = %d, want 0", c.Count())
	}
}

func TestReplyCollectorActiveSlaves(t *testing.T) {
	c := NewReplyCollector(4)
	c.IncActive()
	c.IncActive()
	if c.ActiveSlaves() != 2 {
		t.Fatalf("ActiveSlaves() = %d, want 2", c.ActiveSlaves())
	}
	c.DecActive()
	if c.ActiveSlaves() != 1 {
		t.Fatalf("ActiveSlaves() = %d, want 1", c.ActiveSlaves())
	}
	c.DecActive()
	c.DecActive()
	if c.ActiveSlaves() != 0 {
		t.Fatalf("ActiveSlaves() should not go negative, got %d", c.ActiveSlaves())
	}
}
