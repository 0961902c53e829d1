package speech

import (
	"sync"
)

// FakeService is a scriptable recognizer for tests. With AutoNotify set,
// Start and Stop push the Started/Ended notifications a real platform
// recognizer would emit; otherwise the test pushes notifications itself.
type FakeService struct {
	AutoNotify bool
	StartErr   error

	mu         sync.Mutex
	notif      chan Notification
	startCalls int
	stopCalls  int
}

func NewFakeService() *FakeService {
	return &FakeService{notif: make(chan Notification, 16)}
}

func (f *FakeService) Start() error {
	f.mu.Lock()
	f.startCalls++
	err := f.StartErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if f.AutoNotify {
		f.Push(Notification{Kind: NotificationStarted})
	}
	return nil
}

func (f *FakeService) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	if f.AutoNotify {
		f.Push(Notification{Kind: NotificationEnded})
	}
	return nil
}

func (f *FakeService) Notifications() <-chan Notification {
	return f.notif
}

// Push delivers a scripted notification to the controller.
func (f *FakeService) Push(n Notification) {
	f.notif <- n
}

// Close ends the notification stream, stopping the controller pump.
func (f *FakeService) Close() {
	close(f.notif)
}

func (f *FakeService) StartCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

func (f *FakeService) StopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}
