package pwa

import (
	"fmt"
	"sync"
)

// DeliveryState 描述一条 worker 消息的投递进度。
type DeliveryState int

const (
	// NoController 表示尚未尝试投递。
	NoController DeliveryState = iota
	// AwaitingController 表示页面暂无 controller，等待 controllerchange。
	AwaitingController
	// Delivered 表示消息已交给 controller。
	Delivered
	// Dropped 表示 controllerchange 触发时仍没有 controller，消息被丢弃。
	Dropped
	// Cancelled 表示等待期间被 Cancel，监听已移除。
	Cancelled
)

func (s DeliveryState) String() string {
	switch s {
	case NoController:
		return "no-controller"
	case AwaitingController:
		return "awaiting-controller"
	case Delivered:
		return "delivered"
	case Dropped:
		return "dropped"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("DeliveryState(%d)", int(s))
	}
}

// Delivery 是一次 fire-and-forget 投递：有 controller 时立即发送，
// 否则挂一个只触发一次的 controllerchange 监听。
type Delivery struct {
	mu        sync.Mutex
	container WorkerContainer
	message   interface{}
	state     DeliveryState
	remove    func()
	err       error
}

// Deliver 立即尝试投递 message 并返回投递句柄。
func Deliver(container WorkerContainer, message interface{}) *Delivery {
	d := &Delivery{container: container, message: message, state: NoController}

	if controller := container.Controller(); controller != nil {
		d.post(controller)
		return d
	}

	d.mu.Lock()
	d.state = AwaitingController
	d.mu.Unlock()

	remove := container.OnControllerChange(d.onControllerChange)

	d.mu.Lock()
	if d.state == AwaitingController {
		d.remove = remove
		d.mu.Unlock()
		return d
	}
	d.mu.Unlock()
	// 监听在注册过程中已经触发或被取消
	remove()
	return d
}

func (d *Delivery) onControllerChange() {
	d.mu.Lock()
	if d.state != AwaitingController {
		d.mu.Unlock()
		return
	}
	remove := d.remove
	d.remove = nil
	controller := d.container.Controller()
	if controller == nil {
		d.state = Dropped
	}
	d.mu.Unlock()

	if remove != nil {
		remove()
	}
	if controller != nil {
		d.post(controller)
	}
}

func (d *Delivery) post(controller Worker) {
	err := controller.PostMessage(d.message)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Delivered
	if err != nil {
		d.err = fmt.Errorf("post message: %w", err)
	}
}

// Cancel 移除尚未触发的监听；已投递或已丢弃的消息不受影响。
func (d *Delivery) Cancel() {
	d.mu.Lock()
	if d.state != AwaitingController {
		d.mu.Unlock()
		return
	}
	d.state = Cancelled
	remove := d.remove
	d.remove = nil
	d.mu.Unlock()

	if remove != nil {
		remove()
	}
}

// State 返回当前投递状态。
func (d *Delivery) State() DeliveryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Err 返回 PostMessage 的错误。
func (d *Delivery) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}
