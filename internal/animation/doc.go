// Package animation compiles keyframed property tracks into ffmpeg filter
// expressions. Expressions are pure strings evaluated by ffmpeg per frame
// against the time variable; nothing here touches media.
package animation
