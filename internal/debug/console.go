package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/term"

	"github.com/Versifine/rotation/internal/orient"
	"github.com/Versifine/rotation/internal/rotation"
	"github.com/Versifine/rotation/internal/sim"
)

const (
	defaultMovePulse = 180 * time.Millisecond
	yawStep          = 5.0
	speedStep        = 45.0
)

// Console drives a scenario run interactively from a raw-mode terminal.
type Console struct {
	run       *sim.Run
	out       io.Writer
	movePulse time.Duration

	mu          sync.Mutex
	lookYaw     float64
	input       mgl64.Vec3
	inputUntil  time.Time
	commandMode bool
	commandBuf  []rune
	statusWidth int
	last        rotation.TickResult
}

func NewConsole(run *sim.Run) *Console {
	c := &Console{
		run:       run,
		out:       os.Stdout,
		movePulse: defaultMovePulse,
	}
	if run != nil && run.Actor != nil {
		c.lookYaw = run.Actor.Yaw()
	}
	return c
}

func (c *Console) Start(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("console is nil")
	}
	if c.run == nil || c.run.System == nil || c.run.Loop == nil {
		return fmt.Errorf("console run is not built")
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprint(c.out, "\r\n")
	}()

	fmt.Fprint(c.out, "[debug] console started (W/A/S/D input, arrows look, Space enable, T auto, X clear, : command)\r\n")
	c.renderStatusLine()

	go c.tickLoop(ctx)

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		b, err := reader.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		}
		if b == 3 { // Ctrl+C in raw mode
			return nil
		}
		c.handleKey(reader, b)
	}
}

func (c *Console) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(c.run.Loop.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(time.Now())
		}
	}
}

func (c *Console) tick(now time.Time) {
	c.mu.Lock()
	if !c.inputUntil.IsZero() && !now.Before(c.inputUntil) {
		c.input = mgl64.Vec3{}
		c.inputUntil = time.Time{}
	}
	input := c.input
	c.mu.Unlock()

	c.run.System.SetInputDirection(input)
	result, err := c.run.Loop.Step()
	if err != nil {
		slog.Debug("debug console tick failed", "error", err)
		return
	}
	c.mu.Lock()
	c.last = result
	c.mu.Unlock()
	c.renderStatusLine()
}

func (c *Console) handleKey(reader *bufio.Reader, b byte) {
	if c.isCommandMode() {
		c.handleCommandByte(b)
		return
	}

	sys := c.run.System
	switch b {
	case ':':
		c.enterCommandMode()
		return
	case 'w', 'W':
		c.pulseInput(mgl64.Vec3{0, 0, 1})
	case 's', 'S':
		c.pulseInput(mgl64.Vec3{0, 0, -1})
	case 'a', 'A':
		c.pulseInput(mgl64.Vec3{-1, 0, 0})
	case 'd', 'D':
		c.pulseInput(mgl64.Vec3{1, 0, 0})
	case ' ':
		sys.SetEnabled(!sys.Enabled())
	case 't', 'T':
		sys.SetAutoTransition(!sys.AutoTransition())
	case 'x', 'X':
		c.clearInput()
	case 27: // ESC + arrow sequence
		next, err := reader.ReadByte()
		if err != nil || next != '[' {
			return
		}
		arrow, err := reader.ReadByte()
		if err != nil {
			return
		}
		switch arrow {
		case 'D': // left
			c.adjustLookYaw(-yawStep)
		case 'C': // right
			c.adjustLookYaw(yawStep)
		case 'A': // up
			sys.SetTurnSpeed(sys.TurnSpeed() + speedStep)
		case 'B': // down
			sys.SetTurnSpeed(sys.TurnSpeed() - speedStep)
		}
	}
	c.renderStatusLine()
}

func (c *Console) enterCommandMode() {
	c.mu.Lock()
	c.commandMode = true
	c.commandBuf = c.commandBuf[:0]
	c.mu.Unlock()
	fmt.Fprint(c.out, "\r\n:")
}

func (c *Console) handleCommandByte(b byte) {
	switch b {
	case 13, 10: // Enter
		c.mu.Lock()
		cmd := strings.TrimSpace(string(c.commandBuf))
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()

		fmt.Fprint(c.out, "\r\n")
		if cmd != "" {
			c.executeCommand(cmd)
		}
		c.renderStatusLine()
		return
	case 27: // ESC cancel command mode
		c.mu.Lock()
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()
		fmt.Fprint(c.out, "\r\n[debug] command cancelled\r\n")
		c.renderStatusLine()
		return
	case 8, 127: // Backspace
		c.mu.Lock()
		if len(c.commandBuf) > 0 {
			c.commandBuf = c.commandBuf[:len(c.commandBuf)-1]
		}
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s ", buf)
		fmt.Fprintf(c.out, "\r:%s", buf)
		return
	default:
		if b < 32 || b > 126 {
			return
		}
		c.mu.Lock()
		c.commandBuf = append(c.commandBuf, rune(b))
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s", buf)
	}
}

func (c *Console) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}
	sys := c.run.System

	switch parts[0] {
	case "help":
		c.printHelp()
	case "state":
		pos, hasPos := sys.LookPosition()
		fmt.Fprintf(c.out, "[debug] mode=%s default=%s auto=%t enabled=%t speed=%.1f yaw=%.2f target=%t position=%t(%.2f,%.2f,%.2f) tick=%d\r\n",
			sys.Mode(), sys.DefaultMode(), sys.AutoTransition(), sys.Enabled(), sys.TurnSpeed(), sys.Yaw(),
			sys.HasLookTarget(), hasPos, pos.X(), pos.Y(), pos.Z(), sys.Tick(),
		)
	case "snap":
		fmt.Fprintf(c.out, "[debug] %s\r\n", c.run.World.Snapshot().String())
	case "look":
		c.handleLookCommand(parts)
	case "dir":
		if len(parts) != 2 {
			fmt.Fprint(c.out, "[debug] usage: :dir <yaw>\r\n")
			return
		}
		yaw, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			fmt.Fprint(c.out, "[debug] invalid yaw\r\n")
			return
		}
		c.setLookYaw(yaw)
		fmt.Fprintf(c.out, "[debug] look direction yaw %.1f\r\n", orient.NormalizeAngle(yaw))
	case "untarget":
		sys.ClearLookTarget()
		fmt.Fprint(c.out, "[debug] look target cleared\r\n")
	case "unlook":
		sys.ClearLookPosition()
		fmt.Fprint(c.out, "[debug] look position cleared\r\n")
	case "mode":
		c.handleModeCommand(parts)
	case "speed":
		if len(parts) != 2 {
			fmt.Fprint(c.out, "[debug] usage: :speed <deg/s>\r\n")
			return
		}
		speed, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			fmt.Fprint(c.out, "[debug] invalid speed\r\n")
			return
		}
		sys.SetTurnSpeed(speed)
		fmt.Fprintf(c.out, "[debug] turn speed %.1f\r\n", sys.TurnSpeed())
	case "yaw":
		if len(parts) != 2 {
			fmt.Fprint(c.out, "[debug] usage: :yaw <deg>\r\n")
			return
		}
		yaw, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			fmt.Fprint(c.out, "[debug] invalid yaw\r\n")
			return
		}
		sys.SetRotationYaw(yaw)
		fmt.Fprintf(c.out, "[debug] override yaw %.1f\r\n", yaw)
	default:
		fmt.Fprintf(c.out, "[debug] unknown command: %s\r\n", parts[0])
	}
}

// handleLookCommand targets a named entity or a world position.
func (c *Console) handleLookCommand(parts []string) {
	sys := c.run.System
	if len(parts) == 2 {
		e, ok := c.run.World.Find(parts[1])
		if !ok {
			fmt.Fprintf(c.out, "[debug] entity %s not found\r\n", parts[1])
			return
		}
		sys.SetLookTarget(c.run.World.Ref(e.ID))
		fmt.Fprintf(c.out, "[debug] look at entity %s\r\n", parts[1])
		return
	}

	if len(parts) == 4 {
		x, err1 := strconv.ParseFloat(parts[1], 64)
		y, err2 := strconv.ParseFloat(parts[2], 64)
		z, err3 := strconv.ParseFloat(parts[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			fmt.Fprint(c.out, "[debug] invalid look args\r\n")
			return
		}
		sys.SetLookPosition(mgl64.Vec3{x, y, z})
		fmt.Fprintf(c.out, "[debug] look at (%.3f, %.3f, %.3f)\r\n", x, y, z)
		return
	}

	fmt.Fprint(c.out, "[debug] usage: :look <entity> or :look <x> <y> <z>\r\n")
}

func (c *Console) handleModeCommand(parts []string) {
	if len(parts) < 2 || len(parts) > 3 {
		fmt.Fprint(c.out, "[debug] usage: :mode <name> [force]\r\n")
		return
	}
	m, err := rotation.ParseMode(parts[1])
	if err != nil {
		fmt.Fprintf(c.out, "[debug] %v\r\n", err)
		return
	}
	sys := c.run.System
	if len(parts) == 3 && parts[2] == "force" {
		sys.ForceSetMode(m)
	} else if !sys.TrySetMode(m) {
		fmt.Fprintf(c.out, "[debug] mode %s unavailable (use :mode %s force)\r\n", m, m)
		return
	}
	fmt.Fprintf(c.out, "[debug] mode %s\r\n", sys.Mode())
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, "[debug] keys:\r\n")
	fmt.Fprint(c.out, "  W/S/A/D: pulse input direction (~180ms)\r\n")
	fmt.Fprint(c.out, "  Arrow Left/Right: look direction yaw -/+5\r\n")
	fmt.Fprint(c.out, "  Arrow Up/Down: turn speed +/-45\r\n")
	fmt.Fprint(c.out, "  Space: toggle enabled\r\n")
	fmt.Fprint(c.out, "  T: toggle auto transition\r\n")
	fmt.Fprint(c.out, "  X: clear input, target and position\r\n")
	fmt.Fprint(c.out, "  : enter command mode\r\n")
	fmt.Fprint(c.out, "[debug] commands:\r\n")
	fmt.Fprint(c.out, "  :look <entity>\r\n")
	fmt.Fprint(c.out, "  :look <x> <y> <z>\r\n")
	fmt.Fprint(c.out, "  :dir <yaw>\r\n")
	fmt.Fprint(c.out, "  :untarget\r\n")
	fmt.Fprint(c.out, "  :unlook\r\n")
	fmt.Fprint(c.out, "  :mode <name> [force]\r\n")
	fmt.Fprint(c.out, "  :speed <deg/s>\r\n")
	fmt.Fprint(c.out, "  :yaw <deg>\r\n")
	fmt.Fprint(c.out, "  :state\r\n")
	fmt.Fprint(c.out, "  :snap\r\n")
	fmt.Fprint(c.out, "  :help\r\n")
}

func (c *Console) renderStatusLine() {
	c.mu.Lock()
	if c.commandMode {
		c.mu.Unlock()
		return
	}
	last := c.last
	width := c.statusWidth
	c.mu.Unlock()

	sys := c.run.System
	line := fmt.Sprintf(
		"[MODE:%s AUTO:%s EN:%s | YAW:%.1f TGT:%.1f SPD:%.0f | frozen:%t tick:%d]",
		sys.Mode(),
		boolLabel(sys.AutoTransition()),
		boolLabel(sys.Enabled()),
		sys.Yaw(),
		last.TargetYaw,
		sys.TurnSpeed(),
		last.Frozen,
		last.Tick,
	)

	padding := ""
	if width > len(line) {
		padding = strings.Repeat(" ", width-len(line))
	}
	fmt.Fprintf(c.out, "\r%s%s", line, padding)

	c.mu.Lock()
	if len(line) > c.statusWidth {
		c.statusWidth = len(line)
	}
	c.mu.Unlock()
}

func (c *Console) pulseInput(dir mgl64.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = dir
	c.inputUntil = time.Now().Add(c.movePulse)
}

func (c *Console) adjustLookYaw(delta float64) {
	c.mu.Lock()
	yaw := c.lookYaw + delta
	c.mu.Unlock()
	c.setLookYaw(yaw)
}

func (c *Console) setLookYaw(yaw float64) {
	yaw = orient.NormalizeAngle(yaw)
	c.mu.Lock()
	c.lookYaw = yaw
	c.mu.Unlock()
	c.run.System.SetLookDirection(orient.DirectionFromYaw(yaw))
}

func (c *Console) clearInput() {
	c.mu.Lock()
	c.input = mgl64.Vec3{}
	c.inputUntil = time.Time{}
	c.mu.Unlock()
	c.run.System.SetInputDirection(mgl64.Vec3{})
	c.run.System.ClearLookTarget()
	c.run.System.ClearLookPosition()
}

func (c *Console) isCommandMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandMode
}

func boolLabel(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
