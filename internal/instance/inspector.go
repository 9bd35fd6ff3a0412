package instance

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// Inspector is a read-only view of the host process table.
type Inspector interface {
	ParentPID(ctx context.Context, pid int) (int, error)
	PIDs(ctx context.Context) ([]int, error)
	Cmdline(ctx context.Context, pid int) ([]string, error)
}

// HostInspector reads the live process table via gopsutil.
type HostInspector struct{}

func (HostInspector) ParentPID(ctx context.Context, pid int) (int, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return 0, err
	}
	ppid, err := p.PpidWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return int(ppid), nil
}

func (HostInspector) PIDs(ctx context.Context) ([]int, error) {
	raw, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(raw))
	for i, pid := range raw {
		out[i] = int(pid)
	}
	return out, nil
}

func (HostInspector) Cmdline(ctx context.Context, pid int) ([]string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, err
	}
	return p.CmdlineSliceWithContext(ctx)
}
