package rabbit_test

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/studio-bookings/internal/adapters/rabbit"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPublishConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health/checks/alarms").WithPort("15672").WithBasicAuth("guest", "guest"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitContainer.Terminate(context.Background())

	endpoint, err := rabbitContainer.PortEndpoint(ctx, "5672/tcp", "amqp")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := amqp.Dial(endpoint)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "test.bookings", "booking.*")
	if err != nil {
		t.Fatal(err)
	}
	defer consumer.Close()
	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"subscription.status_changed", "booking.created"} {
		err := pub.Publish(ctx, key, amqp.Publishing{
			MessageId:   key,
			ContentType: "application/json",
			Body:        []byte(`{"type":"` + key + `"}`),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	select {
	case d := <-deliveries:
		if d.RoutingKey != "booking.created" {
			t.Errorf("expected only booking.* to be routed, got %s", d.RoutingKey)
		}
		if err := d.Ack(false); err != nil {
			t.Fatal(err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for delivery")
	}
}
