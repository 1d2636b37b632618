package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDenylistBlocksDestructiveCommands(t *testing.T) {
	blocked := []string{
		"rm -rf /",
		"rm -fr ~",
		"sudo rm -rf /*",
		":(){ :|:& };:",
		"dd if=/dev/zero of=/dev/sda",
		"mkfs.ext4 /dev/sdb1",
		"format C:",
		"del /s /q C:\\",
		"```",
	}
	for _, cmd := range blocked {
		assert.NotEmpty(t, checkDenylist(cmd), "expected %q to be blocked", cmd)
	}
}

func TestCheckDenylistAllowsOrdinaryCommands(t *testing.T) {
	allowed := []string{
		"echo hello",
		"ls -la /tmp",
		"rm ./build/output.txt",
		"git status",
		"npm install",
	}
	for _, cmd := range allowed {
		assert.Empty(t, checkDenylist(cmd), "expected %q to be allowed", cmd)
	}
}
