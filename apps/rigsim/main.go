// Command rigsim stands in for the inclined-plane rig: it publishes simulated readings over MQTT
// the way the rig firmware does.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/projetogalileu/galileu/core/sensor"
)

const connectTimeout = 10 * time.Second

type publisher interface {
	Publish(topic string, payload []byte) error
}

type pahoPublisher struct {
	client paho.Client
}

func (p pahoPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newPublisherFunc connects to the broker. mockable
var newPublisherFunc = func(broker, clientID string) (publisher, func(), error) {
	co := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	client := paho.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, nil, errors.New("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, nil, errors.Wrap(err, "connecting to mqtt broker")
	}
	return pahoPublisher{client: client}, func() { client.Disconnect(250) }, nil
}

func newRootCmd() *cobra.Command {
	var broker, clientID string
	sim := &rig{}

	root := &cobra.Command{
		Use:           "rigsim",
		Short:         "Inclined-plane rig simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	root.PersistentFlags().StringVar(&clientID, "client-id", "galileu-rigsim", "MQTT client id")
	root.PersistentFlags().Float64Var(&sim.angle, "angle", 30, "plane angle in degrees")
	root.PersistentFlags().Float64Var(&sim.weight, "weight", 0.5, "block weight in N")
	root.PersistentFlags().Float64Var(&sim.mu, "mu", 0.1, "kinetic friction coefficient")
	root.PersistentFlags().Float64Var(&sim.length, "length", 1, "plane length in m")

	connect := func() (publisher, func(), error) {
		return newPublisherFunc(broker, clientID)
	}
	root.AddCommand(newPublishCmd(sim, connect))
	root.AddCommand(newChartCmd(sim, connect))
	return root
}

func validate(sim *rig) error {
	switch {
	case sim.angle < 0 || sim.angle > 90:
		return errors.Errorf("angle must be within [0, 90], got %v", sim.angle)
	case sim.weight <= 0:
		return errors.Errorf("weight must be positive, got %v", sim.weight)
	case sim.mu < 0:
		return errors.Errorf("mu must not be negative, got %v", sim.mu)
	case sim.length <= 0:
		return errors.Errorf("length must be positive, got %v", sim.length)
	}
	return nil
}

func newPublishCmd(sim *rig, connect func() (publisher, func(), error)) *cobra.Command {
	var (
		interval time.Duration
		count    int
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a reading on sensor every interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validate(sim); err != nil {
				return err
			}
			if interval <= 0 {
				return errors.Errorf("interval must be positive, got %v", interval)
			}
			pub, closeFn, err := connect()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return publishReadings(ctx, cmd.OutOrStdout(), pub, sim, interval, count)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "time between readings")
	cmd.Flags().IntVar(&count, "count", 0, "number of readings to publish, 0 for no limit")
	return cmd
}

func newChartCmd(sim *rig, connect func() (publisher, func(), error)) *cobra.Command {
	return &cobra.Command{
		Use:   "chart",
		Short: "Publish the acceleration by angle series of the rig",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validate(sim); err != nil {
				return err
			}
			pub, closeFn, err := connect()
			if err != nil {
				return err
			}
			defer closeFn()

			payload, err := json.Marshal(sim.chart())
			if err != nil {
				return errors.Wrap(err, "encoding chart")
			}
			if err := pub.Publish(sensor.ChartPath, payload); err != nil {
				return errors.Wrap(err, "publishing chart")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "published %d chart points\n", len(sim.chart()))
			return nil
		},
	}
}

// publishReadings publishes one JSON object of readings on the sensor topic every interval
// until ctx is done or count readings were sent.
func publishReadings(ctx context.Context, out io.Writer, pub publisher, sim *rig, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for sent := 0; count == 0 || sent < count; sent++ {
		payload, err := json.Marshal(sim.step(interval))
		if err != nil {
			return errors.Wrap(err, "encoding reading")
		}
		if err := pub.Publish(sensor.Root, payload); err != nil {
			return errors.Wrap(err, "publishing reading")
		}
		_, _ = fmt.Fprintf(out, "%s\n", payload)

		if count != 0 && sent+1 == count {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
