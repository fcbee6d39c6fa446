package gantry

import "go.uber.org/zap"

// PullRope turns the pipette rack rope by the given number of revolutions.
func (c *Controller) PullRope(rotations float64) error {
	if err := c.power.PowerOn(); err != nil {
		return err
	}
	steps := c.rack.Steps(rotations)
	c.logger.Debug("pull rope", zap.Float64("rotations", rotations), zap.Int64("steps", steps))
	c.rack.MoveBy(steps)
	c.rack.RunToCompletion()
	return nil
}

func (c *Controller) Pinch() error {
	return c.PullRope(c.cfg.Rope.Pinch)
}

func (c *Controller) Release() error {
	return c.PullRope(-c.cfg.Rope.Pinch)
}

// TensionRope takes up slack in the rack rope and cycles the pinch once.
func (c *Controller) TensionRope() error {
	for _, r := range []float64{c.cfg.Rope.Tension, c.cfg.Rope.Pinch, -c.cfg.Rope.Pinch} {
		if err := c.PullRope(r); err != nil {
			return err
		}
	}
	return nil
}
