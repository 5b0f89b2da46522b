package models

import (
	"testing"
	"time"
)

func TestQueueTaskDue(t *testing.T) {
	now := time.Now()
	task := QueueTask{Status: TaskStatusRunning, NextAttemptAt: now.Add(-time.Second).Unix()}
	if !task.Due(now) {
		t.Fatal("expected running task with past nextAttemptAt to be due")
	}

	future := QueueTask{Status: TaskStatusRunning, NextAttemptAt: now.Add(time.Hour).Unix()}
	if future.Due(now) {
		t.Fatal("expected task with future nextAttemptAt to not be due")
	}

	paused := QueueTask{Status: TaskStatusPaused, NextAttemptAt: now.Add(-time.Second).Unix()}
	if paused.Due(now) {
		t.Fatal("expected paused task to never be due")
	}
}

func TestQueueTaskTerminal(t *testing.T) {
	for _, status := range []string{TaskStatusCompleted, TaskStatusFailed} {
		task := QueueTask{Status: status}
		if !task.Terminal() {
			t.Fatalf("expected status %q to be terminal", status)
		}
	}
	for _, status := range []string{TaskStatusRunning, TaskStatusPaused, TaskStatusPending} {
		task := QueueTask{Status: status}
		if task.Terminal() {
			t.Fatalf("expected status %q to not be terminal", status)
		}
	}
}

func TestQueueTaskCloneIsIndependent(t *testing.T) {
	original := &QueueTask{Datacenters: []string{"gra"}, Options: []string{"opt-1"}}
	clone := original.Clone()

	clone.Datacenters[0] = "sbg"
	clone.Options[0] = "opt-2"

	if original.Datacenters[0] != "gra" {
		t.Fatal("clone mutation leaked into original Datacenters")
	}
	if original.Options[0] != "opt-1" {
		t.Fatal("clone mutation leaked into original Options")
	}
}
